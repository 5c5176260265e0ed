package main

func main() {
	// 初始化控制台
	InitFlag()
	// 开始安全退出任务
	InitSafeExit()
	// 初始化配置
	InitConf(configPath)
	// 初始化日志
	InitLog()

	switch mode {
	case "seed":
		// 初始化断点
		InitBreakPoint()
		// 开始预取任务
		InitTask()
	case "sample":
		InitSample()
	default:
		log.Errorf("unknown mode %q, want sample or seed", mode)
	}
	SafeExitInst.Cleanup()
}
