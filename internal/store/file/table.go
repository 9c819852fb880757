// 包 file：快照文件存储——每次操作整表读入，每次变更整表重写
// 背景：沿用"全量读-改-全量写"的快照语义，不做增量追加或事务日志；
// 进程内用互斥锁串行化写入避免丢失更新，跨进程写入仍无保护。
package file

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// table：单个 CSV 快照文件，固定列集
type table struct {
	path    string
	columns []string
}

// ensure：幂等初始化——文件不存在时写出仅含表头的快照
func (t *table) ensure() error {
	if _, err := os.Stat(t.path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	return t.save(nil)
}

// load：读入全部数据行（不含表头）
func (t *table) load() ([][]string, error) {
	if err := t.ensure(); err != nil {
		return nil, err
	}
	f, err := os.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = len(t.columns)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", t.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}

// save：整表重写（表头+数据行）
// 约束：无部分写保护，进程在写中途崩溃可能损坏快照；与原实现一致
func (t *table) save(rows [][]string) error {
	f, err := os.Create(t.path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.columns); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
