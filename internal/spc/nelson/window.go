package nelson

// Window is a closed run of Size consecutive points starting at Start.
type Window struct {
	Start int
	Size  int
}

// End returns the index one past the window's last point.
func (w Window) End() int {
	return w.Start + w.Size
}

// Windows returns every full window of the given size over a sequence of n
// points, advancing one position at a time. A tail shorter than size is
// never returned.
func Windows(n, size int) []Window {
	if size <= 0 || n < size {
		return nil
	}
	ws := make([]Window, 0, n-size+1)
	for start := 0; start+size <= n; start++ {
		ws = append(ws, Window{Start: start, Size: size})
	}
	return ws
}
