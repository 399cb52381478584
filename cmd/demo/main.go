// Command demo runs a minimal PayMCP-enabled MCP server: one priced
// tool ("generate_report") gated behind the two-step flow, backed by
// the in-memory mock provider, plus the admin HTTP side-channel for
// health and store stats. It exists to exercise the whole wiring path
// end to end, the same role the teacher's cmd/main.go plays for GoPay.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/paymcp/paymcp-go/adminhttp"
	"github.com/paymcp/paymcp-go/examples/mcpsdk"
	_ "github.com/paymcp/paymcp-go/examples/mockprovider" // self-registers "mock" into provider.DefaultRegistry
	"github.com/paymcp/paymcp-go/flow"
	"github.com/paymcp/paymcp-go/paylog"
	"github.com/paymcp/paymcp-go/price"
	"github.com/paymcp/paymcp-go/store"
	"github.com/paymcp/paymcp-go/wrapper"
)

func init() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil {
		paylog.Warn(fmt.Sprintf("no .env file loaded: %v", err))
	}
}

func generateReport(ctx context.Context, hostCtx any, args map[string]any) (any, error) {
	topic, _ := args["topic"].(string)
	return map[string]any{
		"report_id": uuid.NewString(),
		"topic":     topic,
		"summary":   fmt.Sprintf("Generated report on %q.", topic),
	}, nil
}

func main() {
	memStore := store.NewMemoryStore(30 * time.Minute)

	server := mcp.NewServer(&mcp.Implementation{Name: "paymcp-demo", Version: "0.1.0"}, nil)
	runtime := mcpsdk.New(server)

	_, err := wrapper.RegisterWithRuntime(runtime, wrapper.CoordinatorOptions{
		Providers: map[string]wrapper.ProviderConfig{"mock": {}},
		FlowType:  flow.TwoStep,
		Store:     memStore,
		TTL:       30 * time.Minute,
	}, map[string]wrapper.ToolSpec{
		"generate_report": {
			Description: "Generates a short report on a topic.",
			Handler:     generateReport,
			Price:       &price.Info{Price: 0.50, Currency: "USD"},
		},
	})
	if err != nil {
		log.Fatalf("paymcp: registering tools: %v", err)
	}

	adminMux := adminhttp.NewRouter(adminhttp.Options{
		Stats:     adminhttp.MemoryStoreStats{Store: memStore},
		StartedAt: time.Now(),
	})
	go func() {
		paylog.Info("admin http listening", paylog.LogContext{Fields: map[string]any{"addr": ":8089"}})
		if err := http.ListenAndServe(":8089", adminMux); err != nil {
			paylog.Error("admin http server exited", paylog.LogContext{Fields: map[string]any{"error": err.Error()}})
		}
	}()

	paylog.Info("paymcp demo ready", paylog.LogContext{Fields: map[string]any{"instance_id": uuid.NewString()}})

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("paymcp: mcp server exited: %v", err)
	}
}
