package metrics

import (
	"fmt"
	"io"
	"net"
	"sync"
)

// Stream 带协议名的双向字节流
type Stream interface {
	io.ReadWriteCloser
	Protocol() string
}

// TransferStats 抓取间隔内的字节收发增量，key 形如 "<label> sent" / "<label> received"
// Drain 取走的增量折算进 totals，供计数器组以覆盖写的方式上报累计值
type TransferStats struct {
	mu    sync.Mutex
	stats map[string]float64

	totalsMu sync.Mutex
	totals   map[string]float64
}

// NewTransferStats 创建空的收发统计
func NewTransferStats() *TransferStats {
	return &TransferStats{
		stats:  make(map[string]float64),
		totals: make(map[string]float64),
	}
}

// Add 累加 n 字节到 key
func (t *TransferStats) Add(key string, n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.stats[key] += float64(n)
	t.mu.Unlock()
}

// Drain 取走当前增量并清空
func (t *TransferStats) Drain() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.stats
	t.stats = make(map[string]float64)
	return out
}

// Totals 取走当前增量并累加到历史总量，返回总量快照
func (t *TransferStats) Totals() map[string]float64 {
	t.totalsMu.Lock()
	defer t.totalsMu.Unlock()
	t.foldLocked()
	out := make(map[string]float64, len(t.totals))
	for k, v := range t.totals {
		out[k] = v
	}
	return out
}

// Publish 取走当前增量，并在持有 totalsMu 时把累计值写入计数器组
// 重叠的抓取按顺序写入，累计值不会回退
func (t *TransferStats) Publish(g *CounterGroup) {
	t.totalsMu.Lock()
	defer t.totalsMu.Unlock()
	t.foldLocked()
	g.set(t.totals)
}

// foldLocked 将增量折算进 totals（调用方持有 totalsMu）
func (t *TransferStats) foldLocked() {
	for k, v := range t.Drain() {
		t.totals[k] += v
	}
}

// byteCounter 统计某个标签下的收发字节
type byteCounter struct {
	stats    *TransferStats
	sent     string
	received string
}

func newByteCounter(stats *TransferStats, label string) byteCounter {
	return byteCounter{stats: stats, sent: label + " sent", received: label + " received"}
}

// closeRead/closeWrite/reset 转发到被包装对象，不支持时返回 ErrUnsupportedOperation
func closeRead(v any) error {
	if c, ok := v.(interface{ CloseRead() error }); ok {
		return c.CloseRead()
	}
	return fmt.Errorf("close read on %T: %w", v, ErrUnsupportedOperation)
}

func closeWrite(v any) error {
	if c, ok := v.(interface{ CloseWrite() error }); ok {
		return c.CloseWrite()
	}
	return fmt.Errorf("close write on %T: %w", v, ErrUnsupportedOperation)
}

func reset(v any) error {
	if r, ok := v.(interface{ Reset() error }); ok {
		return r.Reset()
	}
	return fmt.Errorf("reset on %T: %w", v, ErrUnsupportedOperation)
}

type trackedConn struct {
	net.Conn
	counter byteCounter
}

func (c *trackedConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.counter.stats.Add(c.counter.received, n)
	return n, err
}

func (c *trackedConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.counter.stats.Add(c.counter.sent, n)
	return n, err
}

// CloseRead 半关闭读方向（如 *net.TCPConn）
func (c *trackedConn) CloseRead() error { return closeRead(c.Conn) }

// CloseWrite 半关闭写方向（如 *net.TCPConn）
func (c *trackedConn) CloseWrite() error { return closeWrite(c.Conn) }

// Unwrap 返回被包装的连接
func (c *trackedConn) Unwrap() net.Conn { return c.Conn }

type trackedStream struct {
	Stream
	counter byteCounter
}

func (s *trackedStream) Read(p []byte) (int, error) {
	n, err := s.Stream.Read(p)
	s.counter.stats.Add(s.counter.received, n)
	return n, err
}

func (s *trackedStream) Write(p []byte) (int, error) {
	n, err := s.Stream.Write(p)
	s.counter.stats.Add(s.counter.sent, n)
	return n, err
}

func (s *trackedStream) CloseRead() error  { return closeRead(s.Stream) }
func (s *trackedStream) CloseWrite() error { return closeWrite(s.Stream) }

// Reset 异常中止流（libp2p 风格的 Reset）
func (s *trackedStream) Reset() error { return reset(s.Stream) }

// Unwrap 返回被包装的流
func (s *trackedStream) Unwrap() Stream { return s.Stream }

// TrackMultiaddrConnection 包装原始连接，收发字节计入 "global sent" / "global received"
func (m *Metrics) TrackMultiaddrConnection(conn net.Conn) net.Conn {
	return &trackedConn{Conn: conn, counter: newByteCounter(m.transferStats, "global")}
}

// TrackProtocolStream 包装协议流，收发字节计入 "<protocol> sent" / "<protocol> received"
// 协议名为空时原样返回
func (m *Metrics) TrackProtocolStream(stream Stream) Stream {
	protocol := stream.Protocol()
	if protocol == "" {
		return stream
	}
	return &trackedStream{Stream: stream, counter: newByteCounter(m.transferStats, protocol)}
}
