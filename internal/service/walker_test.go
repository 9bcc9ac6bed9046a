package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/GhostQS/alphalend-supply/internal/client"
	"github.com/GhostQS/alphalend-supply/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSuiClient serves canned pages and objects for walker and scan tests.
type fakeSuiClient struct {
	pages       map[string][]*client.DynamicFieldPage
	pageCalls   map[string]int
	objects     map[string]*client.ObjectData
	resolveErrs map[string]error
	pageErr     error
	pageErrOn   int
	metadata    *entity.CoinMetadata
	totalSupply *big.Int
	supplyErr   error
	balance     *big.Int
	balanceErr  error
}

func newFakeSuiClient() *fakeSuiClient {
	return &fakeSuiClient{
		pages:       make(map[string][]*client.DynamicFieldPage),
		pageCalls:   make(map[string]int),
		objects:     make(map[string]*client.ObjectData),
		resolveErrs: make(map[string]error),
	}
}

func (f *fakeSuiClient) GetDynamicFields(_ context.Context, parentID string, _ *string, _ int) (*client.DynamicFieldPage, error) {
	call := f.pageCalls[parentID]
	f.pageCalls[parentID] = call + 1
	if f.pageErr != nil && call == f.pageErrOn {
		return nil, f.pageErr
	}
	pages := f.pages[parentID]
	if call >= len(pages) {
		return nil, fmt.Errorf("no page %d for %s", call, parentID)
	}
	return pages[call], nil
}

func (f *fakeSuiClient) GetDynamicFieldObject(_ context.Context, _ string, name entity.Value) (*client.ObjectData, error) {
	key := name.Str()
	if err, ok := f.resolveErrs[key]; ok {
		return nil, err
	}
	return f.objects[key], nil
}

func (f *fakeSuiClient) GetObject(_ context.Context, objectID string) (*client.ObjectData, error) {
	if obj, ok := f.objects[objectID]; ok {
		return obj, nil
	}
	return nil, fmt.Errorf("object %s not found", objectID)
}

func (f *fakeSuiClient) GetCoinMetadata(_ context.Context, coinType string) (*entity.CoinMetadata, error) {
	if f.metadata == nil {
		return nil, fmt.Errorf("coin metadata not found for %s", coinType)
	}
	return f.metadata, nil
}

func (f *fakeSuiClient) GetTotalSupply(_ context.Context, _ string) (*big.Int, error) {
	if f.supplyErr != nil {
		return nil, f.supplyErr
	}
	return f.totalSupply, nil
}

func (f *fakeSuiClient) GetBalance(_ context.Context, _, _ string) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return f.balance, nil
}

func fieldInfo(name string) client.DynamicFieldInfo {
	return client.DynamicFieldInfo{
		Name:       entity.NewString(name),
		ObjectID:   "0xobj_" + name,
		ObjectType: "0x2::dynamic_field::Field",
	}
}

func contentObject(name string, content entity.Value) *client.ObjectData {
	return &client.ObjectData{
		ObjectID: "0xobj_" + name,
		Type:     "0x2::dynamic_field::Field",
		Content:  content,
	}
}

func TestEnumerateWalksEveryPageInOrder(t *testing.T) {
	fake := newFakeSuiClient()
	cursor := "page-2"
	fake.pages["0xparent"] = []*client.DynamicFieldPage{
		{
			Data:        []client.DynamicFieldInfo{fieldInfo("a"), fieldInfo("b")},
			NextCursor:  &cursor,
			HasNextPage: true,
		},
		{
			Data:        []client.DynamicFieldInfo{fieldInfo("c")},
			HasNextPage: false,
		},
	}
	for _, name := range []string{"a", "b", "c"} {
		fake.objects[name] = contentObject(name, entity.NewMapping(map[string]entity.Value{
			"id": entity.NewString(name),
		}))
	}

	walker := NewContainerWalker(fake, 50, zap.NewNop())
	entries, err := walker.Enumerate(context.Background(), "0xparent")

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "0xobj_a", entries[0].ObjectID)
	assert.Equal(t, "0xobj_b", entries[1].ObjectID)
	assert.Equal(t, "0xobj_c", entries[2].ObjectID)
	assert.Equal(t, 2, fake.pageCalls["0xparent"])
	for _, entry := range entries {
		assert.Equal(t, "0xparent", entry.ContainerID)
	}
}

func TestEnumerateSkipsChildrenThatFailToResolve(t *testing.T) {
	fake := newFakeSuiClient()
	fake.pages["0xparent"] = []*client.DynamicFieldPage{
		{
			Data: []client.DynamicFieldInfo{
				fieldInfo("good"),
				fieldInfo("broken"),
				fieldInfo("missing"),
				{Name: entity.Null, ObjectID: "0xnameless"},
			},
		},
	}
	fake.objects["good"] = contentObject("good", entity.NewString("payload"))
	fake.resolveErrs["broken"] = errors.New("temporarily unavailable")
	// "missing" resolves to nil data without an error.

	walker := NewContainerWalker(fake, 50, zap.NewNop())
	entries, err := walker.Enumerate(context.Background(), "0xparent")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0xobj_good", entries[0].ObjectID)
}

func TestEnumerateAbortsWhenPageListingFails(t *testing.T) {
	fake := newFakeSuiClient()
	cursor := "page-2"
	fake.pages["0xparent"] = []*client.DynamicFieldPage{
		{
			Data:        []client.DynamicFieldInfo{fieldInfo("a")},
			NextCursor:  &cursor,
			HasNextPage: true,
		},
	}
	fake.objects["a"] = contentObject("a", entity.NewString("payload"))
	fake.pageErr = &client.RPCError{Code: -32000, Message: "node overloaded"}
	fake.pageErrOn = 1

	walker := NewContainerWalker(fake, 50, zap.NewNop())
	entries, err := walker.Enumerate(context.Background(), "0xparent")

	require.Error(t, err)
	assert.Nil(t, entries)
	var rpcErr *client.RPCError
	assert.ErrorAs(t, err, &rpcErr)
}
