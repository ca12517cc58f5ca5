package portal

import (
	"context"
	"net/url"
	"time"

	"github.com/agentstation/layersync/pkg/errors"
)

// Item is a portal content item.
type Item struct {
	ID           string   `json:"id"           yaml:"id"`
	Owner        string   `json:"owner"        yaml:"owner"`
	Title        string   `json:"title"        yaml:"title"`
	Type         string   `json:"type"         yaml:"type"`
	Name         string   `json:"name"         yaml:"name"`
	URL          string   `json:"url"          yaml:"url,omitempty"`
	TypeKeywords []string `json:"typeKeywords" yaml:"type_keywords,omitempty"`
	Size         int64    `json:"size"         yaml:"size"`
	Modified     int64    `json:"modified"     yaml:"modified"` // epoch milliseconds
}

// ModifiedTime returns Modified as a time.
func (i *Item) ModifiedTime() time.Time {
	return time.UnixMilli(i.Modified).UTC()
}

// User is the authenticated portal user.
type User struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	OrgID    string `json:"orgId"`
}

// Self returns the user the session authenticates as.
func (c *Client) Self(ctx context.Context) (*User, error) {
	var u User
	if err := c.getJSON(ctx, "/community/self", nil, &u); err != nil {
		return nil, err
	}
	if u.Username == "" {
		return nil, &errors.AuthenticationError{
			Method:  c.session.creds.Method(),
			Message: "portal did not identify the user",
			Err:     errors.ErrCredentialsInvalid,
		}
	}
	return &u, nil
}

// Item fetches an item by ID.
func (c *Client) Item(ctx context.Context, id string) (*Item, error) {
	if id == "" {
		return nil, errors.NewValidationError("item_id", id, "cannot be empty")
	}
	var item Item
	if err := c.getJSON(ctx, "/content/items/"+url.PathEscape(id), nil, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, errors.NewNotFoundError("item", id)
	}
	return &item, nil
}

type relatedItemsResponse struct {
	Total        int    `json:"total"`
	RelatedItems []Item `json:"relatedItems"`
}

// SourceItem returns the file item the hosted layer was published from.
func (c *Client) SourceItem(ctx context.Context, layerID string) (*Item, error) {
	params := url.Values{
		"relationshipType": {"Service2Data"},
		"direction":        {"forward"},
	}
	var resp relatedItemsResponse
	if err := c.getJSON(ctx, "/content/items/"+url.PathEscape(layerID)+"/relatedItems", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.RelatedItems) == 0 {
		return nil, errors.NewNotFoundError("source item of layer", layerID)
	}
	return &resp.RelatedItems[0], nil
}

// PublishedFileName returns the file name the layer was published from.
func (c *Client) PublishedFileName(ctx context.Context, layerID string) (string, error) {
	src, err := c.SourceItem(ctx, layerID)
	if err != nil {
		return "", err
	}
	return src.Name, nil
}
