/*
Package cognito answers user queries by walking a bounded graph of reasoning stages:
intake, routing to one of six specialists, tool use, risk assessment, critique with
a capped number of revisions, and a signed, hashed trust receipt.

Critical tool calls (sending e-mail, executing code, deleting records) never run on
their own. The walk suspends, is parked in a state store, and continues only after
a human APPROVE or REJECT.

# Usage

	svc, err := cognito.New()
	if err != nil {
		log.Fatal(err)
	}

	ans, err := svc.Ask(ctx, "Should I invest in tax-free bonds?", "user-1")
	if err != nil {
		log.Fatal(err)
	}
	if ans.Suspended() {
		ans, err = svc.Resume(ctx, ans.WalkID, "REJECT")
	}
	fmt.Println(ans.FinalAnswer)

Every collaborator is a port (see pkg/ports) and can be swapped with an Option:
the reasoning oracle (offline keyword oracle, OpenAI, Anthropic), the tool registry,
the signer, the suspended-walk store (memory, file, Redis, Badger) and the audit,
knowledge and training sinks (memory, SQLite).
*/
package cognito
