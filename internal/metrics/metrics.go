// Package metrics
package metrics

const AircastNamespace = "aircast"
