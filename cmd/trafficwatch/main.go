// Trafficwatch counts the bytes crossing a network interface and alerts
// when the volume of a validation window falls outside the configured
// hourly [min, max] envelope.
//
// Usage:
//
//	# Monitor all interfaces with config.yaml
//	trafficwatch run --config config.yaml
//
//	# Restrict capture to a network
//	trafficwatch run 10.0.0.0/8
//
//	# Seed the limits table
//	trafficwatch limits init
//	trafficwatch limits set --min 2048 --max 4096
//
//	# Check configuration and connectivity
//	trafficwatch validate --connect
package main

func main() {
	Execute()
}
