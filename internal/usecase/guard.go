package usecase

import "fmt"

// guard runs fn and turns a panic into an error so one client cannot take down a task.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
