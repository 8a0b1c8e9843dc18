package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func startServer(t *testing.T, dbPath string) *Server {
	t.Helper()

	srv, err := New(context.Background(), Config{Addr: "127.0.0.1:0", DBPath: dbPath})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})
	return srv
}

func TestServer_CreateListRoundTrip(t *testing.T) {
	srv := startServer(t, filepath.Join(t.TempDir(), "data", "tasks.db"))
	baseURL := "http://" + srv.Addr()

	resp, err := http.Post(baseURL+"/tasks", "application/json", strings.NewReader(`{"task":"buy milk","completed":false}`))
	if err != nil {
		t.Fatalf("post task: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post status = %d, want 200 body=%s", resp.StatusCode, body)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id header")
	}

	req, err := http.NewRequest(http.MethodGet, baseURL+"/tasks", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "req-123" {
		t.Fatalf("request id header = %q, want req-123", got)
	}

	var tasks []struct {
		ID        int64  `json:"id"`
		Task      string `json:"task"`
		Completed bool   `json:"completed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Task != "buy milk" || tasks[0].ID < 1 {
		t.Fatalf("tasks = %+v, want one buy milk task", tasks)
	}
}

func TestServer_RestartKeepsTasks(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tasks.db")

	first, err := New(context.Background(), Config{Addr: "127.0.0.1:0", DBPath: dbPath})
	if err != nil {
		t.Fatalf("new first server: %v", err)
	}
	if _, err := first.store.InsertTask(context.Background(), "survives restart", true); err != nil {
		t.Fatalf("insert task: %v", err)
	}
	first.Close()

	second, err := New(context.Background(), Config{Addr: "127.0.0.1:0", DBPath: dbPath})
	if err != nil {
		t.Fatalf("new second server: %v", err)
	}
	defer second.Close()

	tasks, err := second.store.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Description != "survives restart" || !tasks[0].Completed {
		t.Fatalf("tasks = %+v, want persisted task", tasks)
	}
}

func TestNewFailsOnBadAddr(t *testing.T) {
	if _, err := New(context.Background(), Config{Addr: "bad-addr", DBPath: filepath.Join(t.TempDir(), "tasks.db")}); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestServeNilServer(t *testing.T) {
	var srv *Server
	if err := srv.Serve(context.Background()); err == nil {
		t.Fatal("expected nil server error")
	}
	if srv.Addr() != "" {
		t.Fatal("expected empty addr for nil server")
	}
	srv.Close()
}
