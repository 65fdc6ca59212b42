package graph

import "context"

// Compile-time checks for the mocks.
var (
	_ Provider       = (*MockProvider)(nil)
	_ ObjectDatabase = (*MockObjectDatabase)(nil)
)

// MockProvider is a configurable Provider for testing. If SnapshotFunc is
// nil, Snapshot returns an empty repository.
type MockProvider struct {
	SnapshotFunc func(context.Context) (*Repository, error)
}

func (m *MockProvider) Snapshot(ctx context.Context) (*Repository, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx)
	}
	return NewRepository(nil), nil
}

// MockObjectDatabase is a configurable ObjectDatabase for testing. If
// FindMergeBaseFunc is nil, FindMergeBase reports no merge base.
type MockObjectDatabase struct {
	FindMergeBaseFunc func(context.Context, string, string) (string, error)
}

func (m *MockObjectDatabase) FindMergeBase(ctx context.Context, sha1, sha2 string) (string, error) {
	if m.FindMergeBaseFunc != nil {
		return m.FindMergeBaseFunc(ctx, sha1, sha2)
	}
	return "", nil
}
