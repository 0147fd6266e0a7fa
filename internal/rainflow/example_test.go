package rainflow_test

import (
	"fmt"

	"github.com/djangbahevans/RainflowCycleCounting/internal/rainflow"
)

func Example() {
	res := rainflow.CountFloats([]float64{-2, 1, -3, 5, -1, 3, -4, 4, -2})

	for _, r := range res.Records() {
		state := "closed"
		if !r.Terminated() {
			state = "open"
		}
		fmt.Printf("%-6s %3g range %g %s\n", r.Kind(), r.OriginValue(), r.Range(), state)
	}
	// Output:
	// peak     1 range 4 closed
	// peak     5 range 9 open
	// peak     3 range 4 closed
	// peak     4 range 6 open
	// valley  -2 range 3 closed
	// valley  -3 range 8 closed
	// valley  -1 range 4 closed
	// valley  -4 range 8 open
}

func ExampleClean() {
	sig := rainflow.Clean([]any{"1.25", nil, "n/a", 2, true, " -0.5 "})
	fmt.Println(sig)
	// Output: [1.2 2 1 -0.5]
}
