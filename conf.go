package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var conf *Conf

// ViewStep 视点路径中的一段
type ViewStep struct {
	Lon    float64 `mapstructure:"lon"`
	Lat    float64 `mapstructure:"lat"`
	Zoom   float64 `mapstructure:"zoom"`
	Cycles int     `mapstructure:"cycles"`
}

type Conf struct {
	App struct {
		Version string `mapstructure:"version"`
		Title   string `mapstructure:"title"`
	} `mapstructure:"app"`
	Output struct {
		Directory      string `mapstructure:"directory"`
		Format         string `mapstructure:"format"`
		LogDir         string `mapstructure:"logDir"`
		LogMaxSize     int    `mapstructure:"logMaxSize"`
		OutputTerminal bool   `mapstructure:"outputTerminal"`
	} `mapstructure:"output"`
	Task struct {
		Workers   int `mapstructure:"workers"`
		Timedelay int `mapstructure:"timedelay"`
		BufSize   int `mapstructure:"bufSize"`
	} `mapstructure:"task"`
	BreakPoint struct {
		SaveFilePath string `mapstructure:"saveFilePath"`
	} `mapstructure:"breakPoint"`
	Tm struct {
		Name   string `mapstructure:"name"`
		Min    int    `mapstructure:"min"`
		Max    int    `mapstructure:"max"`
		Format string `mapstructure:"format"`
		URL    string `mapstructure:"url"`
	} `mapstructure:"tm"`
	Lrs []struct {
		Min     int    `mapstructure:"min"`
		Max     int    `mapstructure:"max"`
		Geojson string `mapstructure:"geojson"`
	} `mapstructure:"lrs"`
	Style struct {
		Path                 string  `mapstructure:"path"`
		Scale                float64 `mapstructure:"scale"`
		BaseDrawPriority     int     `mapstructure:"baseDrawPriority"`
		DrawPriorityPerLevel int     `mapstructure:"drawPriorityPerLevel"`
	} `mapstructure:"style"`
	Sampling struct {
		Projection             string  `mapstructure:"projection"`
		Globe                  bool    `mapstructure:"globe"`
		TileSize               int     `mapstructure:"tileSize"`
		MinImportance          float64 `mapstructure:"minImportance"`
		Falloff                float64 `mapstructure:"falloff"`
		NumSimultaneousFetches int     `mapstructure:"numSimultaneousFetches"`
		RetryCycles            int     `mapstructure:"retryCycles"`
		Interval               int     `mapstructure:"interval"`
	} `mapstructure:"sampling"`
	View struct {
		Width  int        `mapstructure:"width"`
		Height int        `mapstructure:"height"`
		Steps  []ViewStep `mapstructure:"steps"`
	} `mapstructure:"view"`
}

// 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.version", "v 0.1.0")
	v.SetDefault("app.title", "Quad Tiler")
	v.SetDefault("output.format", "mbtiles")
	v.SetDefault("output.directory", "output")
	v.SetDefault("output.logMaxSize", 64)
	v.SetDefault("output.outputTerminal", true)
	v.SetDefault("task.workers", 8)
	v.SetDefault("task.timedelay", 0)
	v.SetDefault("task.bufSize", 1024)
	v.SetDefault("breakPoint.saveFilePath", "breakpoint")
	v.SetDefault("tm.format", "png")
	v.SetDefault("tm.min", 0)
	v.SetDefault("tm.max", 14)
	v.SetDefault("style.scale", 1.0)
	v.SetDefault("style.baseDrawPriority", 101)
	v.SetDefault("style.drawPriorityPerLevel", 1000)
	v.SetDefault("sampling.projection", "mercator")
	v.SetDefault("sampling.tileSize", 256)
	v.SetDefault("sampling.minImportance", 256*256/2)
	v.SetDefault("sampling.falloff", 0.5)
	v.SetDefault("sampling.numSimultaneousFetches", 8)
	v.SetDefault("sampling.interval", 100)
	v.SetDefault("view.width", 1024)
	v.SetDefault("view.height", 768)
}

// loadConf 读取配置文件
func loadConf(cfgFile string) (*Conf, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetConfigFile(cfgFile)
	v.AutomaticEnv() // read in environment variables that match
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file(%s) error, details: %w", v.ConfigFileUsed(), err)
	}
	var c Conf
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("配置文件解析失败: %w", err)
	}
	return &c, nil
}

// InitConf 初始化配置
func InitConf(cfgFile string) {
	if cfgFile == "" {
		cfgFile = "conf.toml"
	}
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("config file(%s) not exist\n", cfgFile)
		os.Exit(1)
	}
	c, err := loadConf(cfgFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	conf = c
}
