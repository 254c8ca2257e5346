package aws

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/amireaper/types"
)

func groupsOutput(groups ...asgtypes.AutoScalingGroup) *autoscaling.DescribeAutoScalingGroupsOutput {
	return &autoscaling.DescribeAutoScalingGroupsOutput{AutoScalingGroups: groups}
}

func TestFetchUnattachedConfigImageIDs(t *testing.T) {
	var describedNames []string
	mock := &mockASGClient{
		DescribeAutoScalingGroupsFunc: func(_ context.Context, _ *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
			return groupsOutput(
				asgtypes.AutoScalingGroup{
					AutoScalingGroupName:    aws.String("web-asg"),
					DesiredCapacity:         aws.Int32(3),
					LaunchConfigurationName: aws.String("lc-attached"),
				},
			), nil
		},
		DescribeLaunchConfigurationsFunc: func(_ context.Context, params *autoscaling.DescribeLaunchConfigurationsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeLaunchConfigurationsOutput, error) {
			if len(params.LaunchConfigurationNames) == 0 {
				return &autoscaling.DescribeLaunchConfigurationsOutput{
					LaunchConfigurations: []asgtypes.LaunchConfiguration{
						{LaunchConfigurationName: aws.String("lc-attached"), ImageId: aws.String("ami-attached")},
						{LaunchConfigurationName: aws.String("lc-old"), ImageId: aws.String("ami-old")},
						{LaunchConfigurationName: aws.String("lc-stale"), ImageId: aws.String("ami-stale")},
					},
				}, nil
			}

			describedNames = params.LaunchConfigurationNames
			return &autoscaling.DescribeLaunchConfigurationsOutput{
				LaunchConfigurations: []asgtypes.LaunchConfiguration{
					{LaunchConfigurationName: aws.String("lc-old"), ImageId: aws.String("ami-old")},
					{LaunchConfigurationName: aws.String("lc-stale"), ImageId: aws.String("ami-stale")},
				},
			}, nil
		},
	}

	f := NewWithClients("us-east-1", nil, mock)
	ids, err := f.FetchUnattachedConfigImageIDs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, types.NewImageSet("ami-old", "ami-stale"), ids)
	// Exactly all-minus-used is queried for images.
	assert.ElementsMatch(t, []string{"lc-old", "lc-stale"}, describedNames)
}

func TestFetchUnattachedConfigImageIDs_AllAttached(t *testing.T) {
	namedCalls := 0
	mock := &mockASGClient{
		DescribeAutoScalingGroupsFunc: func(_ context.Context, _ *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
			return groupsOutput(
				asgtypes.AutoScalingGroup{LaunchConfigurationName: aws.String("lc-a")},
				asgtypes.AutoScalingGroup{LaunchConfigurationName: aws.String("lc-b")},
			), nil
		},
		DescribeLaunchConfigurationsFunc: func(_ context.Context, params *autoscaling.DescribeLaunchConfigurationsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeLaunchConfigurationsOutput, error) {
			if len(params.LaunchConfigurationNames) > 0 {
				namedCalls++
			}
			return &autoscaling.DescribeLaunchConfigurationsOutput{
				LaunchConfigurations: []asgtypes.LaunchConfiguration{
					{LaunchConfigurationName: aws.String("lc-a"), ImageId: aws.String("ami-a")},
					{LaunchConfigurationName: aws.String("lc-b"), ImageId: aws.String("ami-b")},
				},
			}, nil
		},
	}

	f := NewWithClients("us-east-1", nil, mock)
	ids, err := f.FetchUnattachedConfigImageIDs(context.Background())

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, namedCalls, "no image lookup should be issued when every config is attached")
}

func TestFetchZeroCapacityConfigImageIDs(t *testing.T) {
	mock := &mockASGClient{
		DescribeAutoScalingGroupsFunc: func(_ context.Context, _ *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
			return groupsOutput(
				asgtypes.AutoScalingGroup{
					AutoScalingGroupName:    aws.String("parked"),
					DesiredCapacity:         aws.Int32(0),
					LaunchConfigurationName: aws.String("lc-parked"),
				},
				// Identical configuration but scaled up: must not contribute.
				asgtypes.AutoScalingGroup{
					AutoScalingGroupName:    aws.String("live"),
					DesiredCapacity:         aws.Int32(2),
					LaunchConfigurationName: aws.String("lc-live"),
				},
				// Scaled to zero with no reference at all: contributes nothing.
				asgtypes.AutoScalingGroup{
					AutoScalingGroupName: aws.String("bare"),
					DesiredCapacity:      aws.Int32(0),
				},
			), nil
		},
		DescribeLaunchConfigurationsFunc: func(_ context.Context, params *autoscaling.DescribeLaunchConfigurationsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeLaunchConfigurationsOutput, error) {
			require.Equal(t, []string{"lc-parked"}, params.LaunchConfigurationNames)
			return &autoscaling.DescribeLaunchConfigurationsOutput{
				LaunchConfigurations: []asgtypes.LaunchConfiguration{
					{LaunchConfigurationName: aws.String("lc-parked"), ImageId: aws.String("ami-parked")},
				},
			}, nil
		},
	}

	f := NewWithClients("us-east-1", nil, mock)
	ids, err := f.FetchZeroCapacityConfigImageIDs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, types.NewImageSet("ami-parked"), ids)
}

func TestFetchAttachedConfigImageIDs(t *testing.T) {
	mock := &mockASGClient{
		DescribeAutoScalingGroupsFunc: func(_ context.Context, _ *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
			return groupsOutput(
				asgtypes.AutoScalingGroup{
					DesiredCapacity:         aws.Int32(2),
					LaunchConfigurationName: aws.String("lc-live"),
				},
				asgtypes.AutoScalingGroup{
					DesiredCapacity:         aws.Int32(0),
					LaunchConfigurationName: aws.String("lc-parked"),
				},
			), nil
		},
		DescribeLaunchConfigurationsFunc: func(_ context.Context, params *autoscaling.DescribeLaunchConfigurationsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeLaunchConfigurationsOutput, error) {
			require.ElementsMatch(t, []string{"lc-live", "lc-parked"}, params.LaunchConfigurationNames)
			return &autoscaling.DescribeLaunchConfigurationsOutput{
				LaunchConfigurations: []asgtypes.LaunchConfiguration{
					{LaunchConfigurationName: aws.String("lc-live"), ImageId: aws.String("ami-live")},
					{LaunchConfigurationName: aws.String("lc-parked"), ImageId: aws.String("ami-parked")},
				},
			}, nil
		},
	}

	f := NewWithClients("us-east-1", nil, mock)
	ids, err := f.FetchAttachedConfigImageIDs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, types.NewImageSet("ami-live", "ami-parked"), ids)
}

func TestConfigImageIDs_ChunksNameLimit(t *testing.T) {
	var names []string
	for i := 0; i < 120; i++ {
		names = append(names, fmt.Sprintf("lc-%03d", i))
	}

	calls := 0
	mock := &mockASGClient{
		DescribeLaunchConfigurationsFunc: func(_ context.Context, params *autoscaling.DescribeLaunchConfigurationsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeLaunchConfigurationsOutput, error) {
			calls++
			require.LessOrEqual(t, len(params.LaunchConfigurationNames), describeNameLimit)
			var configs []asgtypes.LaunchConfiguration
			for _, name := range params.LaunchConfigurationNames {
				configs = append(configs, asgtypes.LaunchConfiguration{
					LaunchConfigurationName: aws.String(name),
					ImageId:                 aws.String("ami-" + name),
				})
			}
			return &autoscaling.DescribeLaunchConfigurationsOutput{LaunchConfigurations: configs}, nil
		},
	}

	f := NewWithClients("us-east-1", nil, mock)
	ids, err := f.configImageIDs(context.Background(), names)

	require.NoError(t, err)
	assert.Len(t, ids, 120)
	assert.Equal(t, 3, calls)
}
