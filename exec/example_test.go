package exec_test

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonwraymond/toolexec/cache"
	"github.com/jonwraymond/toolexec/exec"
	"github.com/jonwraymond/toolexec/resilience"
	"github.com/jonwraymond/toolexec/tool"
)

func ExampleEngine() {
	engine := exec.NewEngine()

	weather := tool.NewFunc("weather", func(_ context.Context, input map[string]any) ([]byte, error) {
		return json.Marshal(map[string]any{
			"city":    input["city"],
			"temp_c":  21,
			"summary": "clear",
		})
	})

	_ = engine.Register(exec.Registration{
		Tool:        weather,
		CachePolicy: cache.Policy{TTL: 5 * time.Minute},
		Breaker: resilience.CircuitBreakerConfig{
			MaxFailures: 5,
			Window:      time.Minute,
			Cooldown:    time.Minute,
		},
	})

	res := engine.Execute(context.Background(), exec.Call{
		Tool:  "weather",
		Input: map[string]any{"city": "Lisbon"},
	})

	fmt.Println(res.Status)
	fmt.Println(res.Attempts)
	// Output:
	// success
	// 1
}

func ExampleEngine_cacheHit() {
	engine := exec.NewEngine()

	calls := 0
	fx := tool.NewFunc("fx", func(context.Context, map[string]any) ([]byte, error) {
		calls++
		return []byte(`{"rate":1.08}`), nil
	})

	_ = engine.Register(exec.Registration{
		Tool:        fx,
		CachePolicy: cache.ForeverPolicy(),
	})

	input := map[string]any{"from": "EUR", "to": "USD"}
	engine.Execute(context.Background(), exec.Call{Tool: "fx", Input: input})
	res := engine.Execute(context.Background(), exec.Call{Tool: "fx", Input: input})

	fmt.Println(res.FromCache)
	fmt.Println(calls)
	// Output:
	// true
	// 1
}

func ExampleToken() {
	engine := exec.NewEngine()

	slow := tool.NewFunc("slow", func(ctx context.Context, _ map[string]any) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_ = engine.Register(exec.Registration{Tool: slow})

	token := exec.NewToken()
	go func() {
		time.Sleep(10 * time.Millisecond)
		token.Cancel()
	}()

	res := engine.Execute(context.Background(), exec.Call{Tool: "slow", Token: token})
	fmt.Println(res.Status)
	// Output:
	// cancelled
}
