package lawapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"law-mate-be/internal/entity"
	"law-mate-be/pkg/collector"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "http://www.law.go.kr/DRF"
	maxPerPage     = 100
)

// Client collects statutes from the Korean National Law Information Center
// (law.go.kr) open API.
type Client struct {
	BaseURL  string
	UserID   string // OC parameter issued to the API account
	Keywords []string
	MaxDocs  int
	client   *http.Client
}

var _ collector.Collector = &Client{}

func NewClient(baseURL, userID string, keywords []string, maxDocs int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if maxDocs <= 0 {
		maxDocs = 200
	}
	return &Client{
		BaseURL:  baseURL,
		UserID:   userID,
		Keywords: keywords,
		MaxDocs:  maxDocs,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type lawSearchResponse struct {
	LawSearch struct {
		TotalCnt json.Number `json:"totalCnt"`
		Page     json.Number `json:"page"`
		Laws     []lawItem   `json:"law"`
	} `json:"LawSearch"`
}

type lawItem struct {
	LawID       string `json:"법령ID"`
	Name        string `json:"법령명한글"`
	DetailLink  string `json:"법령상세링크"`
	RevisedDate string `json:"시행일자"`
}

type lawDetailResponse struct {
	Law struct {
		Articles []struct {
			Number  string `json:"조문번호"`
			Content string `json:"조문내용"`
		} `json:"조문"`
	} `json:"법령"`
}

// FetchDocuments searches the configured keywords, deduplicates by law id,
// and pulls the article text of each hit. The since parameter filters on
// the statute's revision date when the API reports one.
func (c *Client) FetchDocuments(ctx context.Context, since *time.Time) ([]*entity.Document, error) {
	seen := make(map[string]bool)
	var docs []*entity.Document

	for _, keyword := range c.Keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}

		page := 1
		for len(docs) < c.MaxDocs {
			items, total, err := c.searchLaws(ctx, keyword, page)
			if err != nil {
				return nil, fmt.Errorf("law search %q page %d: %w", keyword, page, err)
			}
			if len(items) == 0 {
				break
			}

			for _, item := range items {
				if seen[item.LawID] || len(docs) >= c.MaxDocs {
					continue
				}
				seen[item.LawID] = true

				if since != nil && !revisedAfter(item.RevisedDate, *since) {
					continue
				}

				body, err := c.fetchLawBody(ctx, item.LawID)
				if err != nil {
					return nil, fmt.Errorf("law detail %s: %w", item.LawID, err)
				}
				if strings.TrimSpace(body) == "" {
					continue
				}

				docs = append(docs, &entity.Document{
					Id:          uuid.New(),
					SourceURI:   fmt.Sprintf("%s/lawService.do?ID=%s", c.BaseURL, item.LawID),
					Title:       item.Name,
					Body:        body,
					LastUpdated: parseRevisedDate(item.RevisedDate),
				})
			}

			if page*maxPerPage >= total {
				break
			}
			page++
		}
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("law collector returned no documents")
	}
	return docs, nil
}

func (c *Client) searchLaws(ctx context.Context, keyword string, page int) ([]lawItem, int, error) {
	params := url.Values{}
	params.Set("OC", c.UserID)
	params.Set("target", "law")
	params.Set("type", "JSON")
	params.Set("search", "2") // search by statute name
	params.Set("page", strconv.Itoa(page))
	params.Set("display", strconv.Itoa(maxPerPage))
	params.Set("query", keyword)

	body, err := c.get(ctx, fmt.Sprintf("%s/lawSearch.do?%s", c.BaseURL, params.Encode()))
	if err != nil {
		return nil, 0, err
	}

	var result lawSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, 0, fmt.Errorf("unexpected search response: %w", err)
	}

	total, _ := result.LawSearch.TotalCnt.Int64()
	return result.LawSearch.Laws, int(total), nil
}

func (c *Client) fetchLawBody(ctx context.Context, lawID string) (string, error) {
	params := url.Values{}
	params.Set("OC", c.UserID)
	params.Set("target", "law")
	params.Set("type", "JSON")
	params.Set("ID", lawID)

	body, err := c.get(ctx, fmt.Sprintf("%s/lawService.do?%s", c.BaseURL, params.Encode()))
	if err != nil {
		return "", err
	}

	var detail lawDetailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		return "", fmt.Errorf("unexpected detail response: %w", err)
	}

	var sb strings.Builder
	for _, article := range detail.Law.Articles {
		sb.WriteString(article.Content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("law api status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func parseRevisedDate(s string) time.Time {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func revisedAfter(s string, since time.Time) bool {
	t := parseRevisedDate(s)
	if t.IsZero() {
		return true // unknown revision date, keep the document
	}
	return t.After(since)
}
