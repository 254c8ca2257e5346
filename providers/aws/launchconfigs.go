package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"

	"github.com/yairfalse/amireaper/types"
)

// describeNameLimit is the maximum number of names accepted by a single
// DescribeLaunchConfigurations call.
const describeNameLimit = 50

// FetchUnattachedConfigImageIDs finds launch configurations not attached to
// any scaling group and resolves their image IDs. Used names are collected
// from the groups, subtracted from the full listing, and the remainder is
// described for its images. Names that no longer resolve drop out of the
// second listing naturally - a dangling name is already an orphan.
func (f *Fetcher) FetchUnattachedConfigImageIDs(ctx context.Context) (types.ImageSet, error) {
	groups, err := f.scalingGroups(ctx)
	if err != nil {
		return nil, queryErr("unattached launch configurations", err)
	}

	used := make(map[string]struct{}, len(groups))
	for _, group := range groups {
		if name := aws.ToString(group.LaunchConfigurationName); name != "" {
			used[name] = struct{}{}
		}
	}

	all, err := f.launchConfigurations(ctx, nil)
	if err != nil {
		return nil, queryErr("unattached launch configurations", err)
	}

	var unused []string
	for _, lc := range all {
		name := aws.ToString(lc.LaunchConfigurationName)
		if name == "" {
			continue
		}
		if _, ok := used[name]; !ok {
			unused = append(unused, name)
		}
	}

	ids, err := f.configImageIDs(ctx, unused)
	if err != nil {
		return nil, queryErr("unattached launch configurations", err)
	}
	return ids, nil
}

// FetchZeroCapacityConfigImageIDs finds scaling groups scaled to zero that
// reference a launch configuration and resolves the configured image IDs.
// Groups without a launch configuration contribute nothing.
func (f *Fetcher) FetchZeroCapacityConfigImageIDs(ctx context.Context) (types.ImageSet, error) {
	ids, err := f.groupConfigImageIDs(ctx, true)
	if err != nil {
		return nil, queryErr("zero-capacity launch configurations", err)
	}
	return ids, nil
}

// FetchAttachedConfigImageIDs resolves the image IDs of every launch
// configuration attached to a scaling group, regardless of capacity. An
// attached configuration pins its image even while the group has no
// instances running yet.
func (f *Fetcher) FetchAttachedConfigImageIDs(ctx context.Context) (types.ImageSet, error) {
	ids, err := f.groupConfigImageIDs(ctx, false)
	if err != nil {
		return nil, queryErr("attached launch configurations", err)
	}
	return ids, nil
}

func (f *Fetcher) groupConfigImageIDs(ctx context.Context, zeroCapacityOnly bool) (types.ImageSet, error) {
	groups, err := f.scalingGroups(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, group := range groups {
		if zeroCapacityOnly && aws.ToInt32(group.DesiredCapacity) != 0 {
			continue
		}
		if name := aws.ToString(group.LaunchConfigurationName); name != "" {
			names = append(names, name)
		}
	}

	return f.configImageIDs(ctx, names)
}

// configImageIDs describes the named launch configurations in API-sized
// chunks and collects their image IDs.
func (f *Fetcher) configImageIDs(ctx context.Context, names []string) (types.ImageSet, error) {
	ids := make(types.ImageSet)

	for start := 0; start < len(names); start += describeNameLimit {
		end := start + describeNameLimit
		if end > len(names) {
			end = len(names)
		}

		configs, err := f.launchConfigurations(ctx, names[start:end])
		if err != nil {
			return nil, err
		}
		for _, lc := range configs {
			ids.Add(aws.ToString(lc.ImageId))
		}
	}

	return ids, nil
}

// launchConfigurations lists launch configurations, optionally restricted
// to the given names.
func (f *Fetcher) launchConfigurations(ctx context.Context, names []string) ([]asgtypes.LaunchConfiguration, error) {
	var configs []asgtypes.LaunchConfiguration
	var nextToken *string

	for {
		output, err := f.asgClient.DescribeLaunchConfigurations(ctx, &autoscaling.DescribeLaunchConfigurationsInput{
			LaunchConfigurationNames: names,
			NextToken:                nextToken,
		})
		if err != nil {
			return nil, err
		}
		configs = append(configs, output.LaunchConfigurations...)

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return configs, nil
}
