package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/amireaper/types"
)

// activeInstanceStates are the EC2 lifecycle states that count as a live
// image reference. Terminated is the only state excluded.
var activeInstanceStates = []string{
	"pending",
	"running",
	"shutting-down",
	"stopping",
	"stopped",
}

// FetchActiveInstanceImageIDs lists non-terminated instances and collects
// the image IDs they were launched from. Instances without an image ID
// contribute nothing; an imported instance may legitimately lack one.
func (f *Fetcher) FetchActiveInstanceImageIDs(ctx context.Context) (types.ImageSet, error) {
	ids := make(types.ImageSet)
	var nextToken *string

	for {
		output, err := f.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			Filters: []ec2types.Filter{
				{
					Name:   aws.String("instance-state-name"),
					Values: activeInstanceStates,
				},
			},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, queryErr("active instances", err)
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				ids.Add(aws.ToString(instance.ImageId))
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return ids, nil
}
