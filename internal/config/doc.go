// Package config provides configuration parsing for refx.
//
// The configuration is stored in refx.json, refx.yaml or refx.toml at the
// project root. This package handles loading, saving, and validating it.
//
// # Configuration File Structure
//
//	{
//	  "runtime": {
//	    "errorPolicy": "detach",
//	    "sanitizeHTML": true,
//	    "nonBubbling": ["ended", "scroll", "mount"]
//	  },
//	  "preview": {
//	    "host": "localhost",
//	    "port": 4100,
//	    "template": "counter.html"
//	  },
//	  "log": {"level": "debug", "format": "json"},
//	  "telemetry": {"namespace": "refx", "metrics": true},
//	  "storage": {
//	    "s3": {"bucket": "templates", "region": "us-east-1"}
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Port:", cfg.Preview.Port)
package config
