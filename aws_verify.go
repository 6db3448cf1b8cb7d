//go:build ignore
// +build ignore

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/navicore/searchtools/pkg/backend"
	"github.com/navicore/searchtools/pkg/tools/categories/search"
	"github.com/navicore/searchtools/pkg/tools/core"
)

// Checks that AWS credentials work and that the model accepts the search
// tool descriptors through the Converse API.
// Run with: go run aws_verify.go -region us-west-2

func main() {
	region := flag.String("region", "us-west-2", "AWS region")
	profile := flag.String("profile", "", "AWS profile")
	modelID := flag.String("model", backend.ModelClaude3Haiku, "Bedrock model ID")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("Loading AWS configuration...")
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(*region),
		// Disable EC2 IMDS to prevent hanging in non-EC2 environments
		config.WithEC2IMDSEndpoint(""),
	}
	if *profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(*profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		fmt.Printf("❌ Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Retrieving AWS credentials...")
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to retrieve AWS credentials: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ AWS credentials successfully retrieved for: %s\n", creds.AccessKeyID)

	b, err := backend.NewBedrockBackend(backend.Config{
		Type:      backend.BackendAWSBedrock,
		ModelID:   *modelID,
		MaxTokens: 200,
		Options:   map[string]any{"region": *region, "profile": *profile},
	})
	if err != nil {
		fmt.Printf("❌ Failed to create Bedrock backend: %v\n", err)
		os.Exit(1)
	}
	defer b.Close()

	var descriptors []backend.ClaudeTool
	for _, tool := range search.AllTools() {
		descriptors = append(descriptors, core.Describe(tool))
	}

	fmt.Printf("Testing Converse API with %d tools on %s...\n", len(descriptors), *modelID)
	resp, err := b.SendMessage(ctx, backend.ChatRequest{
		Messages: []backend.Message{{
			Role:    backend.RoleUser,
			Content: "Which Go files are in the workspace? Use a tool.",
		}},
		Tools:     descriptors,
		MaxTokens: 200,
	})
	if err != nil {
		fmt.Printf("❌ Converse request failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Finish reason: %s\n", resp.FinishReason)
	for _, use := range resp.ToolUses {
		fmt.Printf("- tool call %s %s\n", use.Name, string(use.Input))
	}
	fmt.Println("\n✅ AWS credential test passed! The search tools are accepted by the model.")
}
