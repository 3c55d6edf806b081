package sqlite

import (
	"context"
	"testing"
)

func TestTable_QueryManyWithPagination(t *testing.T) {
	ctx := context.Background()
	store := helperOpenStore(t)
	defer helperCloseStore(t, store)

	table := helperTable[Foo](ctx, t, store)

	for i := 1; i <= 10; i++ {
		helperInsert(ctx, t, table, Foo{Id: i, Name: "pagination-test"})
	}

	tests := []struct {
		name          string
		limit, offset int
		expectedIds   []int
	}{
		{"LimitOnly", 3, 0, []int{1, 2, 3}},
		{"OffsetOnly", 0, 5, []int{6, 7, 8, 9, 10}},
		{"LimitAndOffset", 3, 5, []int{6, 7, 8}},
		{"ZeroLimitAndOffset", 0, 0, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"OffsetBeyondData", 0, 15, []int{}},
		{"LargeLimitSmallData", 20, 0, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := table.QueryManyWithPagination(ctx, Equal("$.name", "pagination-test"), tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("Failed to query with pagination: %v", err)
			}

			if len(results) != len(tt.expectedIds) {
				t.Fatalf("Expected %d results, got %d", len(tt.expectedIds), len(results))
			}

			for i, result := range results {
				if result.Id != tt.expectedIds[i] {
					t.Errorf("Expected ID %d at position %d, got %d", tt.expectedIds[i], i, result.Id)
				}
			}
		})
	}
}

func TestTableWithTx_QueryManyWithPagination(t *testing.T) {
	ctx := context.Background()
	store := helperOpenStore(t)
	defer helperCloseStore(t, store)

	table := helperTable[Foo](ctx, t, store)

	tx := helperBegin(ctx, t, store)
	tableTx := table.WithTransaction(tx)

	for i := 1; i <= 10; i++ {
		if err := tableTx.Insert(ctx, Foo{Id: i, Name: "tx-pagination-test"}); err != nil {
			t.Fatalf("Failed to insert test data: %v", err)
		}
	}

	t.Run("BasicPaginationInTx", func(t *testing.T) {
		results, err := tableTx.QueryManyWithPagination(ctx, Equal("$.name", "tx-pagination-test"), 3, 2)
		if err != nil {
			t.Fatalf("Failed to query with pagination in transaction: %v", err)
		}

		expectedIds := []int{3, 4, 5}
		if len(results) != len(expectedIds) {
			t.Fatalf("Expected %d results, got %d", len(expectedIds), len(results))
		}
		for i, result := range results {
			if result.Id != expectedIds[i] {
				t.Errorf("Expected ID %d at position %d, got %d", expectedIds[i], i, result.Id)
			}
		}
	})

	t.Run("DataIsolationWithPagination", func(t *testing.T) {
		results, err := table.QueryManyWithPagination(ctx, Equal("$.name", "tx-pagination-test"), 0, 0)
		if err != nil {
			t.Fatalf("Failed to query with pagination from main table: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("Expected 0 results outside the transaction, got %d", len(results))
		}
	})

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Failed to rollback transaction: %v", err)
	}
}
