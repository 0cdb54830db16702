/*
Package timer provides the one-shot and repeating timer primitives that
scheduled tasks are driven by.

A Facility hands out Handles; stopping a Handle guarantees no future firing
but does not abort a callback that is already running.

	h := timer.System().Every(5*time.Second, func() {
		fmt.Println("tick")
	})
	defer h.Stop()

The system facility runs every callback on its own goroutine, so a slow
callback never delays the next tick and callbacks of one timer may overlap.
*/
package timer
