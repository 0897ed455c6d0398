// Package bridge connects Claude Code runs to ACP sessions.
//
// [Registry] owns session state: it creates and reloads sessions, runs one
// engine execution per prompt, and handles cancellation. Each engine event
// goes through [Translator], which produces [Update] values that the registry
// delivers to the host as session/update notifications.
//
// [Agent] implements the ACP agent interface on top of a Registry:
//
//	reg := bridge.NewRegistry(engine, bridge.WithLogger(logger))
//	agent := bridge.NewAgent(reg)
//	conn := acp.NewAgentSideConnection(agent, os.Stdout, os.Stdin)
//	agent.SetAgentConnection(conn)
//	<-conn.Done()
//
// Engine failures never fail a prompt request. They are reported to the user
// as an "Error: ..." message and the prompt ends with end_turn. Only unknown
// session ids and host delivery failures surface as request errors.
package bridge
