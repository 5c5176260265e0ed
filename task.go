package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/teris-io/shortid"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

func InitTask() {
	start := time.Now()

	tm, err := NewTileMap(conf, log)
	if err != nil {
		log.Errorf("setup tile map %s error, details: %s", conf.Tm.Name, err)
		return
	}
	SafeExitInst.Register(func() { tm.Close() })

	var layers []Layer
	for _, lrs := range conf.Lrs {
		c, err := loadCollection(lrs.Geojson)
		if err != nil {
			log.Fatalf("load region %s error, details: %s", lrs.Geojson, err)
		}
		for z := lrs.Min; z <= lrs.Max; z++ {
			layer, err := NewLayer(c, z)
			if err != nil {
				log.Fatalf("%s: %s", lrs.Geojson, err)
			}
			layers = append(layers, layer)
		}
	}

	task := NewTask(layers, tm, BreakPointInst)
	if task == nil {
		log.Warnf("no tiles to seed for %s", tm.Name)
		return
	}
	bound := task.Bound()
	log.Infof("Task %s: %s zoom %d..%d, bound [%.4f, %.4f, %.4f, %.4f], center %.4f, %.4f, %d tiles",
		task.ID, task.Name, task.Min, task.Max, bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat(),
		task.Center().Lon(), task.Center().Lat(), task.Total)

	// 注册安全退出
	SafeExitInst.Register(task.AbortFun)

	// 开始下载
	task.Download(SafeExitInst.Context())

	secs := time.Since(start).Seconds()
	log.Printf("\n%.3fs finished, %d fetched, %d failed...", secs, task.Fetched(), task.Failed())
}

// Task 下载任务
type Task struct {
	ID          string
	Name        string
	Min         int
	Max         int
	Layers      []Layer
	TileMap     *TileMap
	Total       int64
	Current     int64
	workerCount int
	timeDelay   int
	bufSize     int
	breakPoint  *BreakPoint
	fetched     int64
	failed      int64
	tileWG      sync.WaitGroup
	ctx         context.Context
	abort       context.CancelFunc
	workers     chan struct{}
	started     atomic.Bool
	finished    chan struct{}
}

// NewTask 创建下载任务，超出瓦片源级别范围的层级会被跳过
func NewTask(layers []Layer, m *TileMap, bp *BreakPoint) *Task {
	id, _ := shortid.Generate()

	task := Task{
		ID:         id,
		Name:       m.Name,
		Min:        m.Info.MinZoom,
		Max:        m.Info.MaxZoom,
		TileMap:    m,
		breakPoint: bp,
	}

	for _, layer := range layers {
		if layer.Zoom < m.Info.MinZoom || layer.Zoom > m.Info.MaxZoom {
			log.Warnf("zoom %d out of %s range %d..%d, skipped", layer.Zoom, m.Name, m.Info.MinZoom, m.Info.MaxZoom)
			continue
		}
		log.Printf("zoom: %d, tiles: %d \n", layer.Zoom, layer.Count)
		task.Layers = append(task.Layers, layer)
		task.Total += layer.Count
	}
	if len(task.Layers) == 0 {
		return nil
	}

	task.workerCount = conf.Task.Workers
	if task.workerCount <= 0 {
		task.workerCount = 1
	}
	task.timeDelay = conf.Task.Timedelay
	task.bufSize = conf.Task.BufSize

	task.ctx, task.abort = context.WithCancel(context.Background())
	task.workers = make(chan struct{}, task.workerCount)
	task.finished = make(chan struct{})

	return &task
}

// Bound 所有层级覆盖区域的经纬度范围
func (task *Task) Bound() orb.Bound {
	var bound orb.Bound
	for i, layer := range task.Layers {
		b := layer.Collection.Bound()
		if i == 0 {
			bound = b
			continue
		}
		bound = bound.Union(b)
	}
	return bound
}

// Center 范围中心点
func (task *Task) Center() orb.Point {
	return task.Bound().Center()
}

// AbortFun 结束任务，已开始的下载会等到正在进行的瓦片都返回
func (task *Task) AbortFun() {
	task.abort()
	if task.started.Load() {
		<-task.finished
	}
}

func (task *Task) Fetched() int64 {
	return atomic.LoadInt64(&task.fetched)
}

func (task *Task) Failed() int64 {
	return atomic.LoadInt64(&task.failed)
}

// Download 开启下载任务
func (task *Task) Download(ctx context.Context) {
	if !task.started.CompareAndSwap(false, true) {
		return
	}
	defer close(task.finished)
	stop := context.AfterFunc(ctx, task.abort)
	defer stop()

	for _, layer := range task.Layers {
		if task.ctx.Err() != nil {
			break
		}
		task.downloadLayer(layer)
	}
}

// tileFetcher 瓦片加载器
func (task *Task) tileFetcher(id quadtree.TileID) {
	start := time.Now()
	//workers完成并清退
	defer func() {
		task.tileWG.Done()
		<-task.workers
	}()

	// 只有写入缓存后才记录断点
	body, err := task.TileMap.Persist(task.ctx, id)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			atomic.AddInt64(&task.failed, 1)
			log.WithField("tile", id).Debugf("fetch %s error, details: %s ~", task.TileMap.Info.TileURL(id), err)
		}
		return
	}
	atomic.AddInt64(&task.fetched, 1)
	if task.breakPoint != nil {
		task.breakPoint.SetSuccessed(id)
	}

	cost := time.Since(start).Milliseconds()
	log.Debugf("tile(z:%d, x:%d, y:%d), %dms , %.2f kb, %s ...\n", id.Level, id.X, id.Y, cost, float32(len(body))/1024.0, task.TileMap.Info.TileURL(id))
}

// 按顺序产出该层瓦片
func (task *Task) tileList(layer Layer) <-chan quadtree.TileID {
	tilelist := make(chan quadtree.TileID, task.bufSize)
	go func() {
		defer close(tilelist)
		for _, id := range layer.Tiles {
			select {
			case tilelist <- id:
			case <-task.ctx.Done():
				return
			}
		}
	}()
	return tilelist
}

// downloadLayer 下载指定层级
func (task *Task) downloadLayer(layer Layer) {
	log.Infof("Task layer: %s starting", layer)
	bar := pb.New64(layer.Count).Prefix(fmt.Sprintf("Zoom %d : ", layer.Zoom)).Postfix("\n")
	bar.SetRefreshRate(time.Second)
	bar.Start()

	for id := range task.tileList(layer) {
		if task.ctx.Err() != nil {
			log.Infof("Task %s got canceled.", task.Name)
			break
		}
		// 如果已经在成功列表里
		if task.breakPoint != nil && task.breakPoint.IsSuccessed(id) {
			log.Debugf("tile %s already downloaded, skipped", id)
			bar.Increment()
			atomic.AddInt64(&task.Current, 1)
			continue
		}
		select {
		// 向队列发送数据
		case task.workers <- struct{}{}:
			bar.Increment()
			atomic.AddInt64(&task.Current, 1)
			//设置请求发送间隔时间
			time.Sleep(time.Duration(task.timeDelay) * time.Millisecond)
			task.tileWG.Add(1)
			go task.tileFetcher(id)
		case <-task.ctx.Done():
		}
	}
	//等待该层结束
	task.tileWG.Wait()
	bar.FinishPrint(fmt.Sprintf("Task %s Zoom %d finished ~", task.ID, layer.Zoom))
}
