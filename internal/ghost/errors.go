package ghost

import "fmt"

// FetchError wraps any transport failure or non-2xx response from the
// Content API, naming the resource that was being fetched. The client
// performs no retries; retry policy belongs to callers.
type FetchError struct {
	Resource string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s from Ghost CMS: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
