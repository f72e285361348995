// Package exec provides the tool execution engine.
//
// The Engine wraps every tool invocation with the full resilience
// pipeline: cooperative cancellation, result caching, per-tool circuit
// breaking, a hard deadline per attempt, and a single jittered retry.
// Every call produces a typed Result; Execute never panics and never
// returns a Go error of its own.
//
// # Basic Usage
//
//	engine := exec.NewEngine()
//	_ = engine.Register(exec.Registration{
//	    Tool:        tool.NewFunc("weather", fetchWeather),
//	    CachePolicy: cache.Policy{TTL: 5 * time.Minute},
//	})
//
//	res := engine.Execute(ctx, exec.Call{
//	    Tool:  "weather",
//	    Input: map[string]any{"city": "Lisbon"},
//	})
//	if res.Status == exec.StatusSuccess {
//	    process(res.Payload)
//	}
//
// # Cancellation
//
// A Token may be shared between the caller and the engine. Cancelling
// it stops the engine from waiting on the current attempt, suppresses
// the retry, and discards any late result:
//
//	tok := exec.NewToken()
//	go func() {
//	    <-userAborted
//	    tok.Cancel()
//	}()
//	res := engine.Execute(ctx, exec.Call{Tool: "weather", Token: tok})
package exec
