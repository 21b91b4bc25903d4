// Package progress maps the two-phase remote-then-local transfer into a
// single 0.0-1.0 scale and rate-limits progress emission.
package progress

// Phase boundaries: the remote fetch phase occupies [0, 0.5), the local
// transfer phase [0.5, 1.0]. While a video sits in the server queue its
// progress is pinned to queuePinned so it is distinguishable from an
// untouched pending video.
const (
	queuePinned   = 0.05
	remoteFloor   = 0.1
	phaseBoundary = 0.5
)

// MapRemotePhase maps a remote-side percentage (0-100) into [0, 0.5).
func MapRemotePhase(percent float64) float64 {
	percent = clampPercent(percent)
	if percent >= 100 {
		percent = 99.9
	}
	return percent / 200
}

// MapQueueWait maps queue-wait progress: pinned while queued, remote
// percent scaled into [0.1, 0.5) once the server starts downloading.
func MapQueueWait(percent float64) float64 {
	percent = clampPercent(percent)
	if percent <= 0 {
		return queuePinned
	}
	v := remoteFloor + percent/100*(phaseBoundary-remoteFloor)
	if v >= phaseBoundary {
		v = phaseBoundary - 0.001
	}
	return v
}

// MapTransfer maps local transfer bytes into [0.5, 1.0]. An unknown total
// reports the phase floor.
func MapTransfer(bytesDone, bytesTotal int64) float64 {
	if bytesTotal <= 0 {
		return phaseBoundary
	}
	frac := float64(bytesDone) / float64(bytesTotal)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return phaseBoundary + frac*phaseBoundary
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
