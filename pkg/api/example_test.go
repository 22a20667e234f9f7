package api_test

import (
	"context"
	"fmt"
	"time"

	"github.com/petrijr/evok/pkg/api"
)

// ExampleRouteTableRouter shows a static routing table.
func ExampleRouteTableRouter() {
	router := api.RouteTableRouter[int](api.RouteTable{
		"order:priced": {"charge", "notify"},
	})

	ids, _ := router(context.Background(), api.NewEvent("order:priced", nil), 0)
	fmt.Println(ids)

	// Output:
	// [charge notify]
}

// ExampleRetryPolicy_Delay shows the exponential backoff schedule.
func ExampleRetryPolicy_Delay() {
	p := api.RetryPolicy{MaxAttempts: 4, InitialBackoff: 100 * time.Millisecond, BackoffMultiplier: 2}
	for n := 1; n < p.MaxAttempts; n++ {
		fmt.Println(p.Delay(n))
	}

	// Output:
	// 100ms
	// 200ms
	// 400ms
}
