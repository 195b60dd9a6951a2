package dynamodb

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB table keyed by "key".
type mockDDBClient struct {
	mu       sync.RWMutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	scans    int
	err      error
}

func newMockDDBClient(pageSize int) *mockDDBClient {
	return &mockDDBClient{
		items:    make(map[string]map[string]types.AttributeValue),
		pageSize: pageSize,
	}
}

func (m *mockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	key := params.Item[attrKey].(*types.AttributeValueMemberS).Value
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	m.scans++

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	if params.ExclusiveStartKey != nil {
		start := params.ExclusiveStartKey[attrKey].(*types.AttributeValueMemberS).Value
		i, _ := slices.BinarySearch(keys, start)
		if i < len(keys) && keys[i] == start {
			i++
		}
		keys = keys[i:]
	}

	out := &dynamodb.ScanOutput{}
	if len(keys) > m.pageSize {
		keys = keys[:m.pageSize]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			attrKey: &types.AttributeValueMemberS{Value: keys[len(keys)-1]},
		}
	}

	// Filters apply after the page is read, like DynamoDB.
	var prefix string
	if v, ok := params.ExpressionAttributeValues[":ns"]; ok {
		prefix = v.(*types.AttributeValueMemberS).Value
	}
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out.Items = append(out.Items, m.items[k])
		}
	}
	return out, nil
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient(2)
	p := New(client, "recgo")

	payloads := map[string][]byte{
		"schemas":      []byte(`{}`),
		"indexes":      []byte(`{"unique":{}}`),
		"tags":         []byte(`[]`),
		"transactions": []byte(`[{"id":"1"}]`),
		"sequences":    []byte(`{"tags":0}`),
	}
	for k, v := range payloads {
		require.NoError(t, p.Write(ctx, k, v))
	}
	require.NoError(t, p.Write(ctx, "tags", []byte(`[{"id":"1"}]`)))
	payloads["tags"] = []byte(`[{"id":"1"}]`)

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, payloads, got)
	assert.Equal(t, 3, client.scans)
}

func TestPersistenceNamespace(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient(10)

	a := New(client, "recgo", WithNamespace("a/"))
	b := New(client, "recgo", WithNamespace("b"))

	require.NoError(t, a.Write(ctx, "tags", []byte(`["a"]`)))
	require.NoError(t, b.Write(ctx, "tags", []byte(`["b"]`)))

	_, ok := client.items["a/tags"]
	assert.True(t, ok)

	got, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"tags": []byte(`["a"]`)}, got)

	got, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"tags": []byte(`["b"]`)}, got)
}

func TestPersistenceErrors(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient(10)
	client.err = errors.New("throttled")
	p := New(client, "recgo")

	assert.ErrorContains(t, p.Write(ctx, "tags", nil), "throttled")

	_, err := p.Load(ctx)
	assert.ErrorContains(t, err, "throttled")
}

func TestPersistenceInvalidItem(t *testing.T) {
	client := newMockDDBClient(10)
	client.items["tags"] = map[string]types.AttributeValue{
		attrKey:  &types.AttributeValueMemberS{Value: "tags"},
		attrData: &types.AttributeValueMemberS{Value: "not binary"},
	}

	_, err := New(client, "recgo").Load(context.Background())
	assert.ErrorContains(t, err, "invalid data attribute")
}
