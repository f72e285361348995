package exec

import (
	"context"
	"testing"

	"github.com/jonwraymond/toolexec/cache"
)

func BenchmarkEngine_Execute(b *testing.B) {
	engine := NewEngine()
	tl := successTool("bench", []byte("payload"))
	if err := engine.Register(Registration{Tool: tl}); err != nil {
		b.Fatalf("Register failed: %v", err)
	}

	ctx := context.Background()
	call := Call{Tool: "bench", Input: map[string]any{"n": 1}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Execute(ctx, call)
	}
}

func BenchmarkEngine_Execute_CacheHit(b *testing.B) {
	engine := NewEngine()
	tl := successTool("bench", []byte("payload"))
	if err := engine.Register(Registration{
		Tool:        tl,
		CachePolicy: cache.ForeverPolicy(),
	}); err != nil {
		b.Fatalf("Register failed: %v", err)
	}

	ctx := context.Background()
	call := Call{Tool: "bench", Input: map[string]any{"n": 1}}
	engine.Execute(ctx, call) // warm the cache

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Execute(ctx, call)
	}
}

func BenchmarkEngine_Execute_Parallel(b *testing.B) {
	engine := NewEngine()
	tl := successTool("bench", []byte("payload"))
	if err := engine.Register(Registration{Tool: tl}); err != nil {
		b.Fatalf("Register failed: %v", err)
	}

	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			engine.Execute(ctx, Call{Tool: "bench", Input: map[string]any{"n": 1}})
		}
	})
}

func BenchmarkToken_Cancelled(b *testing.B) {
	token := NewToken()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		token.Cancelled()
	}
}
