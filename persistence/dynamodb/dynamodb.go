// Package dynamodb provides a DynamoDB backed persistence for recgo.
//
// Each payload is one item with a string partition key "key" and a binary
// attribute "data". Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name recgo \
//	  --attribute-definitions AttributeName=key,AttributeType=S \
//	  --key-schema AttributeName=key,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
//
// Items larger than 400 KB are rejected by DynamoDB; combine with
// persistence.Compressed for larger collections.
package dynamodb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/recgo/persistence"
)

const (
	attrKey  = "key"
	attrData = "data"
)

// Client is the subset of the DynamoDB API used by Persistence.
// *dynamodb.Client satisfies it.
type Client interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Persistence implements persistence.Persistence on a DynamoDB table.
type Persistence struct {
	client    Client
	table     string
	namespace string
}

var _ persistence.Persistence = (*Persistence)(nil)

// Option configures a Persistence.
type Option func(*Persistence)

// WithNamespace stores keys as "<namespace>/<key>" so that several stores
// can share a table.
func WithNamespace(ns string) Option {
	return func(p *Persistence) { p.namespace = strings.TrimSuffix(ns, "/") }
}

// New creates a Persistence on table.
func New(client Client, table string, optFns ...Option) *Persistence {
	p := &Persistence{client: client, table: table}
	for _, fn := range optFns {
		fn(p)
	}
	return p
}

func (p *Persistence) itemKey(key string) string {
	if p.namespace == "" {
		return key
	}
	return p.namespace + "/" + key
}

// Load scans the table and returns the payloads of the namespace.
func (p *Persistence) Load(ctx context.Context) (map[string][]byte, error) {
	input := &dynamodb.ScanInput{
		TableName:      aws.String(p.table),
		ConsistentRead: aws.Bool(true),
	}
	if p.namespace != "" {
		input.FilterExpression = aws.String("begins_with(#k, :ns)")
		input.ExpressionAttributeNames = map[string]string{"#k": attrKey}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":ns": &types.AttributeValueMemberS{Value: p.namespace + "/"},
		}
	}

	out := make(map[string][]byte)
	paginator := dynamodb.NewScanPaginator(p.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: scan %s: %w", p.table, err)
		}
		for _, item := range page.Items {
			k, ok := item[attrKey].(*types.AttributeValueMemberS)
			if !ok {
				return nil, fmt.Errorf("dynamodb: invalid %s attribute", attrKey)
			}
			key := k.Value
			if p.namespace != "" {
				var found bool
				if key, found = strings.CutPrefix(key, p.namespace+"/"); !found {
					continue
				}
			}
			data, ok := item[attrData].(*types.AttributeValueMemberB)
			if !ok {
				return nil, fmt.Errorf("dynamodb: invalid %s attribute of %q", attrData, key)
			}
			out[key] = data.Value
		}
	}
	return out, nil
}

// Write implements persistence.Persistence.
func (p *Persistence) Write(ctx context.Context, key string, data []byte) error {
	_, err := p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.table),
		Item: map[string]types.AttributeValue{
			attrKey:  &types.AttributeValueMemberS{Value: p.itemKey(key)},
			attrData: &types.AttributeValueMemberB{Value: data},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb: put %q: %w", key, err)
	}
	return nil
}
