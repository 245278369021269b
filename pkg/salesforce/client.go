// Package salesforce pushes prospect Lead records to Salesforce over the REST
// API with JWT authentication.
package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the Lead surface used by the CRM push.
type Client interface {
	// FindLeadByPhone returns the first Lead with phone, or nil when none
	// exists or phone is blank.
	FindLeadByPhone(ctx context.Context, phone string) (*Lead, error)
	// InsertLeads creates leads in batches of 200. On a batch error the
	// results of earlier batches are returned with the error.
	InsertLeads(ctx context.Context, leads []Lead) ([]InsertResult, error)
	// UpdateLead writes the non-empty fields of u to the Lead with id.
	UpdateLead(ctx context.Context, id string, u LeadUpdate) error
}

// ClientOption configures the Salesforce client.
type ClientOption func(*sfClient)

// WithRateLimit caps API requests per second. A burst equal to the integer
// portion of rps is allowed.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: go-salesforce/v3 does not accept context.Context, so ctx only bounds
// the rate limiter wait.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient creates a Client over an authenticated go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one request, or ctx is cancelled.
func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return eris.Wrap(c.limiter.Wait(ctx), "sf: rate limit")
}

func (c *sfClient) FindLeadByPhone(ctx context.Context, phone string) (*Lead, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, nil
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	soql := fmt.Sprintf("SELECT %s FROM %s WHERE Phone = '%s' LIMIT 1",
		strings.Join(leadFields, ", "), leadObject, escapeSoql(phone))
	var leads []Lead
	if err := c.sf.Query(soql, &leads); err != nil {
		return nil, eris.Wrapf(err, "sf: find lead by phone %s", phone)
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

func (c *sfClient) InsertLeads(ctx context.Context, leads []Lead) ([]InsertResult, error) {
	if len(leads) == 0 {
		return nil, nil
	}
	records := make([]map[string]any, len(leads))
	for i, l := range leads {
		r, err := l.record()
		if err != nil {
			return nil, eris.Wrapf(err, "sf: lead %d", i)
		}
		records[i] = r
	}

	var out []InsertResult
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))
		if err := c.wait(ctx); err != nil {
			return out, err
		}
		res, err := c.sf.InsertCollection(leadObject, records[start:end], maxBatchSize)
		if err != nil {
			return out, eris.Wrapf(err, "sf: insert leads %d-%d", start, end)
		}
		for _, r := range res.Results {
			var errs []string
			for _, e := range r.Errors {
				errs = append(errs, e.Message)
			}
			out = append(out, InsertResult{ID: r.Id, Success: r.Success, Errors: errs})
		}
	}
	return out, nil
}

func (c *sfClient) UpdateLead(ctx context.Context, id string, u LeadUpdate) error {
	if id == "" {
		return eris.New("sf: lead id is required")
	}
	record := u.fields()
	if len(record) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	record["Id"] = id
	if err := c.sf.UpdateOne(leadObject, record); err != nil {
		return eris.Wrapf(err, "sf: update lead %s", id)
	}
	return nil
}
