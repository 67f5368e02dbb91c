package notify

import "errors"

// Multi fans every call out to all members. Posts go only to members that
// have permission; the fan-out fails only when every such member fails.
type Multi []Facility

func (m Multi) Post(key int64, n Notification) error {
	var (
		errs      []error
		delivered bool
	)
	for _, f := range m {
		if !f.PermissionGranted() {
			continue
		}
		if err := f.Post(key, n); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return errors.Join(errs...)
}

func (m Multi) Cancel(key int64) error {
	var errs []error
	for _, f := range m {
		if err := f.Cancel(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PermissionGranted() bool {
	for _, f := range m {
		if f.PermissionGranted() {
			return true
		}
	}
	return false
}
