package graph_test

import (
	"testing"
	"time"

	"muleguard/intel-api/internal/domain"
	"muleguard/intel-api/internal/graph"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// tx builds a transaction with an auto-incrementing id suffix left to the caller.
func tx(id, from, to string, amount float64) domain.Transaction {
	return domain.Transaction{
		TransactionID: id,
		SenderID:      from,
		ReceiverID:    to,
		Amount:        amount,
		Timestamp:     t0,
	}
}

func TestBuild_NodesAndEdges(t *testing.T) {
	g := graph.Build([]domain.Transaction{
		tx("t1", "A", "B", 100),
		tx("t2", "B", "C", 50),
		tx("t3", "A", "B", 25), // parallel transfer, must not collapse
	})

	if got := g.NodeCount(); got != 3 {
		t.Fatalf("NodeCount = %d, want 3", got)
	}
	if got := g.EdgeCount(); got != 3 {
		t.Fatalf("EdgeCount = %d, want 3 (parallel edges preserved)", got)
	}
	if !g.HasNode("C") || g.HasNode("D") {
		t.Errorf("HasNode: C should exist, D should not")
	}

	if got := g.OutDegree("A"); got != 2 {
		t.Errorf("OutDegree(A) = %d, want 2", got)
	}
	if got := g.InDegree("B"); got != 2 {
		t.Errorf("InDegree(B) = %d, want 2", got)
	}
	if got := g.TotalSent("A"); got != 125 {
		t.Errorf("TotalSent(A) = %v, want 125", got)
	}
	if got := g.TotalReceived("B"); got != 125 {
		t.Errorf("TotalReceived(B) = %v, want 125", got)
	}

	succ := g.Successors("A")
	if len(succ) != 1 || succ[0] != "B" {
		t.Errorf("Successors(A) = %v, want [B]", succ)
	}
}

func TestBuild_SelfTransfer(t *testing.T) {
	g := graph.Build([]domain.Transaction{
		tx("t1", "A", "A", 10),
	})

	if got := g.NodeCount(); got != 1 {
		t.Fatalf("NodeCount = %d, want 1", got)
	}
	if g.InDegree("A") != 1 || g.OutDegree("A") != 1 {
		t.Errorf("self-loop degrees = in %d out %d, want 1/1", g.InDegree("A"), g.OutDegree("A"))
	}
	if g.TotalSent("A") != 10 || g.TotalReceived("A") != 10 {
		t.Errorf("self-loop amounts = sent %v recv %v, want 10/10", g.TotalSent("A"), g.TotalReceived("A"))
	}
}

func TestBuild_Empty(t *testing.T) {
	g := graph.Build(nil)
	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Fatalf("empty batch: nodes %d edges %d, want 0/0", g.NodeCount(), g.EdgeCount())
	}
	if nodes := g.Nodes(); len(nodes) != 0 {
		t.Errorf("Nodes() = %v, want empty", nodes)
	}
}
