// Package postgrest talks to a PostgREST-style row service (the hosted
// backend the organization uses). One resty client, no automatic retries:
// writes must never be replayed behind the coordinator's back.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/umoja/core"
	"github.com/trezcool/umoja/storage/rowstore"
)

type Client struct {
	http *resty.Client
}

var _ rowstore.Client = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	http := resty.New().
		SetBaseURL(conf.Store.RestURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", conf.Store.RestKey).
		SetAuthToken(conf.Store.RestKey)
	return &Client{http: http}
}

func (c *Client) Select(ctx context.Context, table string, q rowstore.Query) ([]json.RawMessage, error) {
	var rows []json.RawMessage
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetResult(&rows)
	if q.Filter != nil {
		req.SetQueryParam(q.Filter.Column, filterParam(*q.Filter))
	}
	if q.Order != nil {
		direction := "desc"
		if q.Order.Ascending {
			direction = "asc"
		}
		req.SetQueryParam("order", q.Order.Field+"."+direction)
	}

	resp, err := req.Get("/" + table)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting from %s", table)
	}
	if resp.IsError() {
		return nil, errors.Errorf("selecting from %s: %s: %s", table, resp.Status(), resp.String())
	}
	return rows, nil
}

func (c *Client) Upsert(ctx context.Context, table string, payload interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetBody([]interface{}{payload}).
		Post("/" + table)
	if err != nil {
		return errors.Wrapf(err, "upserting into %s", table)
	}
	if resp.IsError() {
		return errors.Errorf("upserting into %s: %s: %s", table, resp.Status(), resp.String())
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, table string, f rowstore.Filter) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(f.Column, filterParam(f)).
		Delete("/" + table)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	if resp.IsError() {
		return errors.Errorf("deleting from %s: %s: %s", table, resp.Status(), resp.String())
	}
	return nil
}

func filterParam(f rowstore.Filter) string {
	op := "eq"
	if f.Not {
		op = "neq"
	}
	return op + "." + fmt.Sprint(f.Value)
}
