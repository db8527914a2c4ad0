package api

import (
	"context"
	"fmt"
	"log/slog"
)

// Resource is a JSON:API entry of the data management service: a hub,
// project, folder, item or version.
type Resource struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Attributes Attributes `json:"attributes"`
}

type Attributes struct {
	Name          string `json:"name,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	CreateTime    string `json:"createTime,omitempty"`
	VersionNumber int    `json:"versionNumber,omitempty"`
}

func (resource Resource) IsFolder() bool {
	return resource.Type == "folders"
}

type link struct {
	Href string `json:"href"`
}

type listing struct {
	Data  []Resource `json:"data"`
	Links struct {
		Next *link `json:"next"`
	} `json:"links"`
}

func (client *Client) Hubs(ctx context.Context, accessToken string) ([]Resource, error) {
	return client.list(ctx, client.endpoint("/project/v1/hubs"), accessToken)
}

func (client *Client) Projects(ctx context.Context, hubID, accessToken string) ([]Resource, error) {
	return client.list(ctx, client.endpoint("/project/v1/hubs/%s/projects", hubID), accessToken)
}

// ProjectContents lists the top folders of a project, or the contents of
// folderID when it is set.
func (client *Client) ProjectContents(ctx context.Context, hubID, projectID, folderID, accessToken string) ([]Resource, error) {
	if folderID == "" {
		return client.list(ctx, client.endpoint("/project/v1/hubs/%s/projects/%s/topFolders", hubID, projectID), accessToken)
	}

	return client.list(ctx, client.endpoint("/data/v1/projects/%s/folders/%s/contents", projectID, folderID), accessToken)
}

func (client *Client) ItemVersions(ctx context.Context, projectID, itemID, accessToken string) ([]Resource, error) {
	return client.list(ctx, client.endpoint("/data/v1/projects/%s/items/%s/versions", projectID, itemID), accessToken)
}

// list follows links.next until the listing is exhausted.
func (client *Client) list(ctx context.Context, url, accessToken string) ([]Resource, error) {
	resources := []Resource{}

	for url != "" {
		var page listing
		if _, err := client.getJSON(ctx, url, accessToken, &page); err != nil {
			return nil, fmt.Errorf("failed to list resources: %w", err)
		}

		resources = append(resources, page.Data...)

		url = ""
		if page.Links.Next != nil {
			url = page.Links.Next.Href
		}
	}

	client.log(slog.LevelDebug, "Resources listed", "count", len(resources))
	return resources, nil
}
