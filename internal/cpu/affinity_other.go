//go:build !linux && !darwin && !windows

package cpu

func pinToCore(int) (uintptr, error) {
	return 0, ErrPinningUnsupported
}
