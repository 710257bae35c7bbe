//go:build darwin

package cpu

// pinToCore always fails: macOS exposes no thread affinity API.
func pinToCore(int) (uintptr, error) {
	return 0, ErrPinningUnsupported
}
