package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
)

// scalingGroups lists every Auto Scaling group in the region.
func (f *Fetcher) scalingGroups(ctx context.Context) ([]asgtypes.AutoScalingGroup, error) {
	var groups []asgtypes.AutoScalingGroup
	var nextToken *string

	for {
		output, err := f.asgClient.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, err
		}
		groups = append(groups, output.AutoScalingGroups...)

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return groups, nil
}

// launchTemplateSpec returns the group's effective launch-template
// reference. The reference lives either directly on the group or one level
// deeper under the mixed-instances policy; the two shapes are semantically
// equivalent. Returns nil when the group uses neither.
func launchTemplateSpec(group asgtypes.AutoScalingGroup) *asgtypes.LaunchTemplateSpecification {
	if group.LaunchTemplate != nil {
		return group.LaunchTemplate
	}
	if group.MixedInstancesPolicy != nil && group.MixedInstancesPolicy.LaunchTemplate != nil {
		return group.MixedInstancesPolicy.LaunchTemplate.LaunchTemplateSpecification
	}
	return nil
}
