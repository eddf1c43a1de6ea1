// Package dynamo implements the storage contracts from internal/storage on
// Amazon DynamoDB: the item codec (native pipeline types to attribute values
// and back), the batched writer with unprocessed-item retry, the paginated
// query/scan engine, and table bootstrap.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"retailetl/internal/config"
)

// NewClient builds a DynamoDB client from the default AWS credential chain,
// applying the pipeline's region and optional endpoint override (the latter
// points runs at a local emulator).
func NewClient(ctx context.Context, st config.Store) (*dynamodb.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if st.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(st.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if st.Endpoint != "" {
			o.BaseEndpoint = aws.String(st.Endpoint)
		}
	}), nil
}
