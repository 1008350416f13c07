/*
flag Package holds the cli flags every honeybee binary accepts.

	-service          service name used by logs, traces and profiles
	-app_config_path  YAML app config with the platform table

Binary specific flags live in the binary. Binaries call flag.Parse() at the
top of main so test binaries keep their own -test.* flags.
*/

package flag

import (
	"flag"
)

// Service names.
const (
	APIServer = "api_server"
	Collector = "collector"
	Panoptic  = "panoptic"
)

const DefaultAppConfigPath = "app_config/honeybee.yaml"

var (
	ServiceName   string = APIServer
	AppConfigPath string = DefaultAppConfigPath
)

func init() {
	flag.StringVar(&ServiceName, "service", APIServer, "one of 'api_server', 'collector' or 'panoptic'")
	flag.StringVar(&AppConfigPath, "app_config_path", DefaultAppConfigPath, "path to the honeybee app config")
}
