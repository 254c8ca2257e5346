package aws

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go"

	"github.com/yairfalse/amireaper/types"
)

// FetchUnattachedTemplateImageIDs finds launch templates not attached to
// any scaling group and collects the image IDs of every version. Multiple
// versions may reference different images, so all of them count, not just
// the latest. Attachment is judged by the direct launch-template field on
// the group.
func (f *Fetcher) FetchUnattachedTemplateImageIDs(ctx context.Context) (types.ImageSet, error) {
	groups, err := f.scalingGroups(ctx)
	if err != nil {
		return nil, queryErr("unattached launch templates", err)
	}

	used := make(map[string]struct{}, len(groups))
	for _, group := range groups {
		if group.LaunchTemplate == nil {
			continue
		}
		if name := aws.ToString(group.LaunchTemplate.LaunchTemplateName); name != "" {
			used[name] = struct{}{}
		}
	}

	all, err := f.launchTemplateNames(ctx)
	if err != nil {
		return nil, queryErr("unattached launch templates", err)
	}

	ids := make(types.ImageSet)
	for _, name := range all {
		if _, ok := used[name]; ok {
			continue
		}
		versionIDs, err := f.templateImageIDs(ctx, name, nil)
		if err != nil {
			return nil, queryErr("unattached launch templates", err)
		}
		ids = ids.Union(versionIDs)
	}

	return ids, nil
}

// FetchZeroCapacityTemplateImageIDs finds scaling groups scaled to zero
// that reference a launch template, directly or through a mixed-instances
// policy, and resolves the referenced image IDs. A reference without a
// version means the latest version. Groups without a template reference
// contribute nothing.
func (f *Fetcher) FetchZeroCapacityTemplateImageIDs(ctx context.Context) (types.ImageSet, error) {
	ids, err := f.groupTemplateImageIDs(ctx, true)
	if err != nil {
		return nil, queryErr("zero-capacity launch templates", err)
	}
	return ids, nil
}

// FetchAttachedTemplateImageIDs resolves the image IDs referenced by the
// launch template of every scaling group, regardless of capacity. Both
// nesting shapes count as attached.
func (f *Fetcher) FetchAttachedTemplateImageIDs(ctx context.Context) (types.ImageSet, error) {
	ids, err := f.groupTemplateImageIDs(ctx, false)
	if err != nil {
		return nil, queryErr("attached launch templates", err)
	}
	return ids, nil
}

func (f *Fetcher) groupTemplateImageIDs(ctx context.Context, zeroCapacityOnly bool) (types.ImageSet, error) {
	groups, err := f.scalingGroups(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(types.ImageSet)
	seen := make(map[string]struct{})

	for _, group := range groups {
		if zeroCapacityOnly && aws.ToInt32(group.DesiredCapacity) != 0 {
			continue
		}
		spec := launchTemplateSpec(group)
		if spec == nil {
			continue
		}
		name := aws.ToString(spec.LaunchTemplateName)
		if name == "" {
			continue
		}
		version := aws.ToString(spec.Version)
		if version == "" {
			version = "$Latest"
		}

		key := name + "/" + version
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		versionIDs, err := f.templateImageIDs(ctx, name, []string{version})
		if err != nil {
			return nil, err
		}
		ids = ids.Union(versionIDs)
	}

	return ids, nil
}

// launchTemplateNames lists the names of every launch template.
func (f *Fetcher) launchTemplateNames(ctx context.Context) ([]string, error) {
	var names []string
	var nextToken *string

	for {
		output, err := f.ec2Client.DescribeLaunchTemplates(ctx, &ec2.DescribeLaunchTemplatesInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, err
		}

		for _, lt := range output.LaunchTemplates {
			if name := aws.ToString(lt.LaunchTemplateName); name != "" {
				names = append(names, name)
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return names, nil
}

// templateImageIDs collects the image IDs referenced by the named launch
// template. With no versions given every version is inspected. A template
// name that no longer resolves yields an empty set: the reference dangles,
// so it pins nothing.
func (f *Fetcher) templateImageIDs(ctx context.Context, name string, versions []string) (types.ImageSet, error) {
	ids := make(types.ImageSet)
	var nextToken *string

	for {
		output, err := f.ec2Client.DescribeLaunchTemplateVersions(ctx, &ec2.DescribeLaunchTemplateVersionsInput{
			LaunchTemplateName: aws.String(name),
			Versions:           versions,
			NextToken:          nextToken,
		})
		if err != nil {
			if isNotFound(err) {
				return ids, nil
			}
			return nil, err
		}

		for _, version := range output.LaunchTemplateVersions {
			if version.LaunchTemplateData != nil {
				ids.Add(aws.ToString(version.LaunchTemplateData.ImageId))
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return ids, nil
}

// isNotFound reports whether err is the EC2 not-found error for a launch
// template name (InvalidLaunchTemplateName.NotFoundException).
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.ErrorCode(), "NotFoundException")
}
