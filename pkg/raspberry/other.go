//go:build !linux
// +build !linux

package raspberry

func openLine(string, int, bias) (Source, error) {
	return nil, ErrNotSupported
}

func openPin(int, bias) (Source, error) {
	return nil, ErrNotSupported
}
