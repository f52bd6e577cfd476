package channels

import "time"

// TrySend sends msg only if ch can take it right away.
func TrySend[T any](ch chan<- T, msg T) error {
	return Send(ch, msg, 0)
}

// Send delivers msg on ch, waiting at most timeout. A timeout of zero or less
// never blocks. A closed channel yields ErrChannelClosed instead of a panic.
func Send[T any](ch chan<- T, msg T, timeout time.Duration) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrChannelClosed
		}
	}()

	if timeout <= 0 {
		select {
		case ch <- msg:
			return nil
		default:
			return ErrChannelFull
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- msg:
		return nil
	case <-timer.C:
		return ErrChannelTimeout
	}
}
