/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/hrm"
	"jinr.ru/greenlab/go-hrm/pkg/session"
	"jinr.ru/greenlab/go-hrm/pkg/srv/api"
)

type ApiClient struct {
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.Api.Address),
	}
}

func (c *ApiClient) url(action string) string {
	return fmt.Sprintf("%s/%s", c.ApiPrefix, action)
}

// History requests retained samples, all of them when since is 0
func (c *ApiClient) History(since int64) ([]hrm.Sample, error) {
	params := req.Param{}
	if since != 0 {
		params["since"] = strconv.FormatInt(since, 10)
	}
	r, err := req.Get(c.url("history"), params)
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var samples []hrm.Sample
	err = r.ToJSON(&samples)
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// Recap requests min, max and last rate over the retained history
func (c *ApiClient) Recap() (*history.Recap, error) {
	r, err := req.Get(c.url("recap"))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	recap := &history.Recap{}
	err = r.ToJSON(recap)
	if err != nil {
		return nil, err
	}
	return recap, nil
}

// Persist asks the server to rewrite the history file now
func (c *ApiClient) Persist() (*api.Persisted, error) {
	r, err := req.Post(c.url("persist"))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	persisted := &api.Persisted{}
	err = r.ToJSON(persisted)
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

// Sessions requests the session journal
func (c *ApiClient) Sessions() ([]*session.Record, error) {
	r, err := req.Get(c.url("sessions"))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var records []*session.Record
	err = r.ToJSON(&records)
	if err != nil {
		return nil, err
	}
	return records, nil
}
