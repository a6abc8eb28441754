package browser

import (
	"fmt"
)

// NavigationError reports that the target page could not be brought into a
// usable state. Idle is set when the document loaded but the network never
// went quiet within the navigation timeout; the page is still usable then.
type NavigationError struct {
	URL  string
	Idle bool
	Err  error
}

func (e *NavigationError) Error() string {
	if e.Idle {
		return fmt.Sprintf("page %s loaded but network did not settle: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to navigate to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
