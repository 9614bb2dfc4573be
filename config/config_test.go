package config

import "testing"

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, MaxBodyBytes: 1 << 20},
		Auth:   AuthConfig{JWTSecret: "0123456789abcdef", Issuer: "school-console"},
	}
}

func TestConfigValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("合法配置不应校验失败: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"缺少 jwt_secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"jwt_secret 过短", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }},
		{"请求体上限非正数", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("期望校验失败，实际通过")
			}
		})
	}
}
