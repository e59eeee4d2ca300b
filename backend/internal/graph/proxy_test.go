package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// These tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.
func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	user := os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	password := os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		password = "password"
	}
	return neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
}

func TestProxy_RunWriteAndRead(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	proxy := NewProxy(driver, "")
	chunkID := "test-chunk-" + time.Now().Format("20060102150405")

	defer func() {
		_ = proxy.RunWrite(ctx, []Statement{{
			Text:   "MATCH (c:Chunk {id: $id}) DETACH DELETE c",
			Params: map[string]any{"id": chunkID},
		}})
	}()

	err = proxy.RunWrite(ctx, []Statement{
		{
			Text:   "MERGE (c:Chunk {id: $id}) SET c.chapter = $chapter",
			Params: map[string]any{"id": chunkID, "chapter": 3},
		},
		{
			Text:   "MATCH (c:Chunk {id: $id}) SET c.stage = $stage",
			Params: map[string]any{"id": chunkID, "stage": 1},
		},
	})
	if err != nil {
		t.Fatalf("RunWrite failed: %v", err)
	}

	rows, err := proxy.RunRead(ctx, Statement{
		Text:   "MATCH (c:Chunk {id: $id}) RETURN c.chapter AS chapter, c.stage AS stage",
		Params: map[string]any{"id": chunkID},
	})
	if err != nil {
		t.Fatalf("RunRead failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected one row, got %d", len(rows))
	}
	if rows[0]["chapter"] != int64(3) || rows[0]["stage"] != int64(1) {
		t.Errorf("Unexpected row: %v", rows[0])
	}
}

func TestProxy_WriteBatchIsAtomic(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	proxy := NewProxy(driver, "")
	chunkID := "test-atomic-" + time.Now().Format("20060102150405")

	defer func() {
		_ = proxy.RunWrite(ctx, []Statement{{
			Text:   "MATCH (c:Chunk {id: $id}) DETACH DELETE c",
			Params: map[string]any{"id": chunkID},
		}})
	}()

	err = proxy.RunWrite(ctx, []Statement{
		{
			Text:   "MERGE (c:Chunk {id: $id})",
			Params: map[string]any{"id": chunkID},
		},
		{
			Text: "THIS IS NOT CYPHER",
		},
	})
	if err == nil {
		t.Fatal("Expected the batch to fail")
	}

	rows, err := proxy.RunRead(ctx, Statement{
		Text:   "MATCH (c:Chunk {id: $id}) RETURN c.id AS id",
		Params: map[string]any{"id": chunkID},
	})
	if err != nil {
		t.Fatalf("RunRead failed: %v", err)
	}
	if len(rows) != 0 {
		t.Error("Failed batch must roll back the earlier statement")
	}
}
