package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Dynamo is the reference deployment's Backend, one DynamoDB table per
// logical table, matching SPEC_FULL.md §9 ("The reference hard-codes
// DynamoDB"). Every table is keyed by a string "pk" attribute, with each
// entry of Item.Attrs stored as its own string attribute, so executors see
// the same logical records as from the SQLite backend.
type Dynamo struct {
	client      *dynamodb.Client
	tablePrefix string
}

// NewDynamo constructs a Dynamo backend using the default AWS credential
// chain (environment, shared config, EC2/ECS role) resolved for region.
// tablePrefix is prepended to every logical table name, letting one account
// host multiple environments' tables side by side.
func NewDynamo(ctx context.Context, region, tablePrefix string) (*Dynamo, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("kvstore: loading aws config: %w", err)
	}
	return &Dynamo{client: dynamodb.NewFromConfig(cfg), tablePrefix: tablePrefix}, nil
}

func (d *Dynamo) Close() error { return nil }

func (d *Dynamo) physicalTable(table string) string { return d.tablePrefix + table }

func (d *Dynamo) Get(ctx context.Context, table, key string) (Item, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.physicalTable(table)),
		Key:       map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: key}},
	})
	if err != nil {
		return Item{}, fmt.Errorf("kvstore: dynamo get %s/%s: %w", table, key, err)
	}
	if out.Item == nil {
		return Item{}, ErrNotFound
	}
	return itemFromAttributeMap(table, key, out.Item), nil
}

func (d *Dynamo) Put(ctx context.Context, item Item) error {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.physicalTable(item.Table)),
		Item:      attributeMapFromItem(item),
	})
	if err != nil {
		return fmt.Errorf("kvstore: dynamo put %s/%s: %w", item.Table, item.Key, err)
	}
	return nil
}

func (d *Dynamo) PutIfAbsent(ctx context.Context, item Item) error {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.physicalTable(item.Table)),
		Item:                attributeMapFromItem(item),
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConflict
		}
		return fmt.Errorf("kvstore: dynamo put-if-absent %s/%s: %w", item.Table, item.Key, err)
	}
	return nil
}

func (d *Dynamo) Delete(ctx context.Context, table, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.physicalTable(table)),
		Key:       map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: key}},
	})
	if err != nil {
		return fmt.Errorf("kvstore: dynamo delete %s/%s: %w", table, key, err)
	}
	return nil
}

func (d *Dynamo) Scan(ctx context.Context, table string) ([]Item, error) {
	var items []Item
	var startKey map[string]types.AttributeValue
	for {
		out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.physicalTable(table)),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("kvstore: dynamo scan %s: %w", table, err)
		}
		for _, raw := range out.Items {
			pk, _ := raw["pk"].(*types.AttributeValueMemberS)
			key := ""
			if pk != nil {
				key = pk.Value
			}
			items = append(items, itemFromAttributeMap(table, key, raw))
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return items, nil
}

func attributeMapFromItem(item Item) map[string]types.AttributeValue {
	av := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: item.Key},
	}
	for k, v := range item.Attrs {
		av[k] = &types.AttributeValueMemberS{Value: v}
	}
	return av
}

func itemFromAttributeMap(table, key string, av map[string]types.AttributeValue) Item {
	attrs := make(map[string]string, len(av))
	for k, v := range av {
		if k == "pk" {
			continue
		}
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			attrs[k] = s.Value
		}
	}
	return Item{Table: table, Key: key, Attrs: attrs}
}
