package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hrygo/divinecanvas/internal/profile"
	"github.com/hrygo/divinecanvas/plugin/ai"
	"github.com/hrygo/divinecanvas/plugin/ai/agent"
	"github.com/hrygo/divinecanvas/plugin/ai/graph"
	aichat "github.com/hrygo/divinecanvas/server/router/api/v1/ai"
	"github.com/hrygo/divinecanvas/store"
	"github.com/hrygo/divinecanvas/store/db"
)

// printSink prints each client event as one line.
type printSink struct{}

func (printSink) Send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Printf("%-18s %s\n", event, raw)
	return nil
}

var agentID string

// test-agent runs chat turns against the configured LLM on a throwaway
// SQLite database and prints the event stream.
//
//	go run ./cmd/test-agent --agent flow "draw the checkout process" "add a timeout branch"
var rootCmd = &cobra.Command{
	Use:   "test-agent prompt [prompt...]",
	Short: "Run chat turns and print the event stream",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		runTurns(args)
	},
}

func init() {
	rootCmd.Flags().StringVar(&agentID, "agent", "", "pin a strategy instead of routing")
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTurns(prompts []string) {
	// 1. 加载配置
	dataDir, err := os.MkdirTemp("", "divinecanvas-test-agent")
	if err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	defer os.RemoveAll(dataDir)
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		Data:   dataDir,
		DSN:    filepath.Join(dataDir, "test.db"),
	}
	p.FromEnv()
	if !p.IsAIEnabled() {
		log.Fatal("AI is not enabled. Please set DIVINECANVAS_AI_API_KEY in .env")
	}

	// 2. 初始化数据库
	ctx := context.Background()
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		log.Fatalf("Failed to create db driver: %v", err)
	}
	storeInstance := store.New(dbDriver, p, nil)
	defer storeInstance.Close()
	if err := storeInstance.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	// 3. 初始化 LLM 服务与编排图
	aiConfig := ai.NewConfigFromProfile(p)
	llm, err := ai.NewLLMService(&aiConfig.LLM)
	if err != nil {
		log.Fatalf("Failed to create LLM service: %v", err)
	}
	registry, err := agent.NewRegistry(llm, p.ToolModeAgents)
	if err != nil {
		log.Fatalf("Failed to build strategies: %v", err)
	}
	router := agent.NewChatRouter(llm, agent.ChatRouterConfig{Model: aiConfig.Router.Model})
	chat := aichat.NewChatService(storeInstance, graph.New(router, registry))

	// 4. 运行对话
	var sessionID *int64
	for i, prompt := range prompts {
		fmt.Printf("\n=== turn %d: %s\n", i+1, prompt)
		req := &aichat.ChatRequest{SessionID: sessionID, AgentID: agentID, Prompt: prompt}
		if err := chat.Handle(ctx, req, printSink{}); err != nil {
			log.Fatalf("Turn failed: %v", err)
		}
		if sessionID == nil {
			sessions, err := storeInstance.ListChatSessions(ctx)
			if err != nil || len(sessions) == 0 {
				log.Fatalf("Failed to find session: %v", err)
			}
			sessionID = &sessions[0].ID
		}
	}

	messages, err := storeInstance.ListChatMessages(ctx, *sessionID)
	if err != nil {
		log.Fatalf("Failed to list messages: %v", err)
	}
	fmt.Println("\n=== message log")
	for _, m := range messages {
		fmt.Printf("#%d %-9s agent=%-11s %s\n", m.ID, m.Role, m.Agent, strings.ReplaceAll(aichat.TruncateString(m.Content, 80), "\n", " "))
	}
}
