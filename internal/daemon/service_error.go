package daemon

type ServiceErrorKind int

const (
	ServiceErrorInvalid ServiceErrorKind = iota
	ServiceErrorNotFound
	ServiceErrorConflict
)

type ServiceError struct {
	Kind    ServiceErrorKind
	Message string
}

func (e *ServiceError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func errInvalid(message string) *ServiceError {
	return &ServiceError{Kind: ServiceErrorInvalid, Message: message}
}

func errNotFound(message string) *ServiceError {
	return &ServiceError{Kind: ServiceErrorNotFound, Message: message}
}
