package catalog

import "testing"

func TestStore_SyncState_LazyCreate(t *testing.T) {
	s := NewStore(setupTestDB(t))

	st, err := s.SyncState()
	if err != nil {
		t.Fatalf("SyncState: %v", err)
	}
	if st.IsSyncing || st.LastFullSyncAt != nil || st.TotalVideosInPlaylist != 0 {
		t.Errorf("fresh sync state not zero-valued: %+v", st)
	}
}

func TestStore_SyncLifecycle(t *testing.T) {
	s := NewStore(setupTestDB(t))

	addVideo(t, s, "a", StatusCompleted)
	addVideo(t, s, "b", StatusPending)
	if err := s.SetWatched("a", true); err != nil {
		t.Fatalf("SetWatched: %v", err)
	}

	if err := s.StartSync(); err != nil {
		t.Fatalf("StartSync: %v", err)
	}
	st, _ := s.SyncState()
	if !st.IsSyncing {
		t.Error("IsSyncing should be set")
	}

	if err := s.CompleteSync(2, "PL123"); err != nil {
		t.Fatalf("CompleteSync: %v", err)
	}
	st, _ = s.SyncState()
	if st.IsSyncing {
		t.Error("IsSyncing should be cleared")
	}
	if st.LastFullSyncAt == nil {
		t.Error("LastFullSyncAt should be set")
	}
	if st.TotalVideosInPlaylist != 2 || st.DownloadedVideos != 1 || st.WatchedVideos != 1 {
		t.Errorf("counters = %d/%d/%d, want 2/1/1",
			st.TotalVideosInPlaylist, st.DownloadedVideos, st.WatchedVideos)
	}
	if st.RemotePlaylistID == nil || *st.RemotePlaylistID != "PL123" {
		t.Errorf("RemotePlaylistID = %v, want PL123", st.RemotePlaylistID)
	}
}

func TestStore_FailSync_RecordsError(t *testing.T) {
	s := NewStore(setupTestDB(t))

	if err := s.StartSync(); err != nil {
		t.Fatalf("StartSync: %v", err)
	}
	if err := s.FailSync("network down"); err != nil {
		t.Fatalf("FailSync: %v", err)
	}

	st, _ := s.SyncState()
	if st.IsSyncing {
		t.Error("IsSyncing should be cleared on failure")
	}
	if st.LastError == nil || *st.LastError != "network down" {
		t.Errorf("LastError = %v, want recorded message", st.LastError)
	}

	// The next successful start clears the error.
	if err := s.StartSync(); err != nil {
		t.Fatalf("StartSync: %v", err)
	}
	st, _ = s.SyncState()
	if st.LastError != nil {
		t.Error("LastError should be cleared on start")
	}
}

func TestStore_CompleteSync_KeepsPlaylistID(t *testing.T) {
	s := NewStore(setupTestDB(t))

	if err := s.CompleteSync(0, "PL123"); err != nil {
		t.Fatalf("CompleteSync: %v", err)
	}
	// An empty playlist id must not erase the recorded one.
	if err := s.CompleteSync(0, ""); err != nil {
		t.Fatalf("CompleteSync: %v", err)
	}

	st, _ := s.SyncState()
	if st.RemotePlaylistID == nil || *st.RemotePlaylistID != "PL123" {
		t.Errorf("RemotePlaylistID = %v, want PL123 preserved", st.RemotePlaylistID)
	}
}
