// Package devices is a thin relay to the device-registry service. The
// forecast jobs use it to hydrate device coordinates that the warehouse
// window is missing before spatial features are computed.
package devices

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	BaseURL    string
	Tenant     string
	HTTPClient *http.Client
}

func New(baseURL, tenant string) *Client {
	return &Client{
		BaseURL: baseURL,
		Tenant:  tenant,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type Device struct {
	DeviceID  string  `json:"device_id"`
	SiteID    string  `json:"site_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Active    bool    `json:"active"`
}

// ListDevices fetches the registered devices for the tenant.
func (c *Client) ListDevices() ([]Device, error) {
	endpoint := fmt.Sprintf("http://%s/api/v2/devices?tenant=%s", c.BaseURL, url.QueryEscape(c.Tenant))

	resp, err := c.HTTPClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to contact device registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("device registry returned %s: %s", resp.Status, string(b))
	}

	var payload struct {
		Devices []Device `json:"devices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid device registry response: %w", err)
	}
	return payload.Devices, nil
}

// CoordinateIndex maps device id to its registered coordinates.
func CoordinateIndex(devices []Device) map[string][2]float64 {
	idx := make(map[string][2]float64, len(devices))
	for _, d := range devices {
		idx[d.DeviceID] = [2]float64{d.Latitude, d.Longitude}
	}
	return idx
}
