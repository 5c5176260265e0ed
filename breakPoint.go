package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

var BreakPointInst *BreakPoint

func InitBreakPoint() {
	bp, err := NewBreakPoint(conf.BreakPoint.SaveFilePath, conf.Tm.Name, conf.Task.Workers)
	if err != nil {
		fmt.Println(err)
		panic("break point file open is error")
	}
	BreakPointInst = bp

	SafeExitInst.Register(BreakPointInst.BreakPointSafeFun)

	// 开始断点任务
	go BreakPointInst.Start()
}

// NewBreakPoint 打开 dir/name.log 并读取已完成的瓦片
func NewBreakPoint(dir, name string, bufSize int) (*BreakPoint, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	filapath := filepath.Join(dir, fmt.Sprintf("%s.log", name))
	file, err := os.OpenFile(filapath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	// 获取断点记录
	successMap, err := getBackPoint(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &BreakPoint{
		file:       file,
		saveChan:   make(chan quadtree.TileID, bufSize),
		done:       make(chan struct{}),
		successMap: successMap,
	}, nil
}

// 初始化断点文件
func getBackPoint(file *os.File) (map[string]struct{}, error) {
	res := make(map[string]struct{})

	sc := bufio.NewScanner(file)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			res[line] = struct{}{}
		}
	}
	return res, sc.Err()
}

func breakPointKey(id quadtree.TileID) string {
	return fmt.Sprintf("%d-%d-%d", id.X, id.Y, id.Level)
}

type BreakPoint struct {
	file       *os.File
	saveChan   chan quadtree.TileID
	done       chan struct{}
	successMap map[string]struct{}

	mu      sync.RWMutex
	isClose bool
}

func (b *BreakPoint) IsSuccessed(id quadtree.TileID) bool {
	_, ok := b.successMap[breakPointKey(id)]
	return ok
}

func (b *BreakPoint) SetSuccessed(id quadtree.TileID) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.isClose {
		return
	}
	b.saveChan <- id
}

func (b *BreakPoint) Start() {
	defer close(b.done)
	log.Infof("断点记录任务已开始")
	for id := range b.saveChan {
		if _, err := b.file.WriteString(breakPointKey(id) + "\n"); err != nil {
			log.Warnf("write break point %s error, details: %s", id, err)
		}
	}
}

// BreakPointSafeFun 关闭记录通道，等待写完后关闭文件
func (b *BreakPoint) BreakPointSafeFun() {
	b.mu.Lock()
	if b.isClose {
		b.mu.Unlock()
		return
	}
	b.isClose = true
	close(b.saveChan)
	b.mu.Unlock()

	<-b.done
	b.file.Close()
	log.Infof("断点记录任务已安全退出")
}
