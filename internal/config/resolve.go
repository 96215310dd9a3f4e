package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var configDirOverride string

// SetConfigDir 指定配置目录（--config 参数），优先于 CONFIG_DIR
func SetConfigDir(dir string) {
	configDirOverride = dir
}

// configDirs {env}.yaml 的候选目录，取第一个存在的文件
func configDirs(env Environment) []string {
	if configDirOverride != "" {
		return []string{configDirOverride}
	}
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return []string{dir}
	}
	if env == EnvProduction {
		return []string{"/etc/manajemen-tugas"}
	}
	return []string{"configs", "../configs"}
}

// loadDotEnv 非生产环境读取 .env.{env}，已有的环境变量不会被覆盖
func loadDotEnv(env Environment) {
	if env == EnvProduction {
		return
	}
	name := ".env." + string(env)
	for _, path := range []string{name, filepath.Join("..", name)} {
		if godotenv.Load(path) == nil {
			return
		}
	}
}
