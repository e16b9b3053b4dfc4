package cognito_test

import (
	"context"
	"fmt"

	"github.com/aretw0/cognito"
)

func Example() {
	svc, err := cognito.New()
	if err != nil {
		panic(err)
	}
	ctx := context.Background()

	ans, err := svc.Ask(ctx, "Send an email to ops@example.com about the outage", "user-1")
	if err != nil {
		panic(err)
	}
	fmt.Println("suspended:", ans.Suspended(), ans.PendingApproval.ToolCall.Name)

	ans, err = svc.Resume(ctx, ans.WalkID, "APPROVE")
	if err != nil {
		panic(err)
	}
	fmt.Println("status:", ans.Status)
	// Output:
	// suspended: true send_email
	// status: terminated
}
