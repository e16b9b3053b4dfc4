package registry

import (
	"context"
	"fmt"

	"github.com/aretw0/cognito/pkg/domain"
)

// Names of the built-in tools.
const (
	ToolSearch               = "search"
	ToolFinance              = "finance"
	ToolLegal                = "legal"
	ToolFitness              = "fitness"
	ToolCodeExecutor         = "code_executor"
	ToolSendEmail            = "send_email"
	ToolDeleteDatabaseRecord = "delete_database_record"
)

// DefaultCritical is the default set of tools that require a human APPROVE.
func DefaultCritical() []string {
	return []string{ToolCodeExecutor, ToolSendEmail, ToolDeleteDatabaseRecord}
}

var queryParams = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{"type": "string", "description": "What to look up."},
	},
	"required": []string{"query"},
}

// Builtin returns a registry with the mock domain tools and sandboxed critical tools.
func Builtin() *Registry {
	r := NewRegistry()

	r.Register(domain.Tool{Name: ToolSearch, Description: "External web search for recent public data.", Parameters: queryParams},
		func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("External Search Result for '%s...': The latest public data shows 15%% growth.", clip(stringArg(args, "query"), 30)), nil
		})
	r.Register(domain.Tool{Name: ToolFinance, Description: "Market data and financial advisory lookups.", Parameters: queryParams},
		func(_ context.Context, _ map[string]any) (string, error) {
			return "Finance Data API: Stock prices are volatile. Advisory: Consult a licensed professional.", nil
		})
	r.Register(domain.Tool{Name: ToolLegal, Description: "Legal precedent database.", Parameters: queryParams},
		func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("Legal Precedent Database: Case law found relevant to '%s...' is highly complex.", clip(stringArg(args, "query"), 30)), nil
		})
	r.Register(domain.Tool{Name: ToolFitness, Description: "Fitness tracking data.", Parameters: queryParams},
		func(_ context.Context, _ map[string]any) (string, error) {
			return "Fitness Data: Calorie burn target reached. Personalized plan updated.", nil
		})

	r.Register(domain.Tool{Name: ToolCodeExecutor, Description: "Runs a code snippet in a sandbox.", Critical: true},
		func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("Sandbox: executed %d bytes of code.", len(stringArg(args, "code"))), nil
		})
	r.Register(domain.Tool{Name: ToolSendEmail, Description: "Sends an email on behalf of the user.", Critical: true},
		func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("Outbox: email queued for %s.", stringArg(args, "to")), nil
		})
	r.Register(domain.Tool{Name: ToolDeleteDatabaseRecord, Description: "Deletes a database record.", Critical: true},
		func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("Database: record %s deleted.", stringArg(args, "record")), nil
		})

	return r
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
