package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/yairfalse/amireaper/types"
)

// FetchCatalog lists every image owned by the account and builds the
// catalog keyed by image ID. Key uniqueness is provider-guaranteed.
func (f *Fetcher) FetchCatalog(ctx context.Context) (types.ImageCatalog, error) {
	catalog := make(types.ImageCatalog)
	var nextToken *string

	for {
		output, err := f.ec2Client.DescribeImages(ctx, &ec2.DescribeImagesInput{
			Owners:    []string{"self"},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, queryErr("owned images", err)
		}

		for _, image := range output.Images {
			id := aws.ToString(image.ImageId)
			if id == "" {
				continue
			}
			catalog[id] = types.Image{
				ID:          id,
				Name:        aws.ToString(image.Name),
				Description: aws.ToString(image.Description),
				CreatedAt:   parseCreationDate(image.CreationDate),
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return catalog, nil
}

// parseCreationDate parses the RFC3339 creation timestamp EC2 returns.
// A missing or malformed timestamp yields the zero time; the age filter
// treats unknown-age images as never old enough to delete.
func parseCreationDate(s *string) time.Time {
	if s == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return time.Time{}
	}
	return t
}
