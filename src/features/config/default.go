package config

var defaultConfig = Config{
	Server: Server{
		Port:        5005,
		PrintRoutes: false,
	},
	Upstream: Upstream{
		Host:               "www.xiaozhishop.xyz",
		Port:               5005,
		HTTPS:              false,
		RequestTimeout:     30,
		AudioTimeout:       120, // assets can be large
		LyricTimeout:       30,
		RetryMax:           1,
		InsecureSkipVerify: true,
		UserAgent:          "Xiaozhi-Adapter/1.0",
	},
	Cache: Cache{
		MaxSize: 20,
	},
	Logger: Logger{
		Level:  "info",
		Format: "text",
	},
}

// Default returns a fresh copy of the default configuration.
func Default() *Config {
	return defaultConfig.clone()
}
