package email

import "fmt"

// DeliveryError is returned by SMTPSender.Send. The mail worker reads
// Permanent() to decide between retrying and dead-lettering.
type DeliveryError struct {
	Stage string
	Perm  bool
	Err   error
}

func (e *DeliveryError) Error() string {
	kind := "transient"
	if e.Perm {
		kind = "permanent"
	}
	return fmt.Sprintf("smtp %s (%s): %v", e.Stage, kind, e.Err)
}

func (e *DeliveryError) Unwrap() error   { return e.Err }
func (e *DeliveryError) Permanent() bool { return e.Perm }

func permanent(stage string, err error) *DeliveryError {
	return &DeliveryError{Stage: stage, Perm: true, Err: err}
}

func transient(stage string, err error) *DeliveryError {
	return &DeliveryError{Stage: stage, Err: err}
}
