//go:build ceph

/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package engine

import (
	"io"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

// CephConfig names the RADOS pool archived generations land in. Adapted
// from memcp's storage.CephFactory.
type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
}

// CephColdStore lazily connects to the cluster on first use.
type CephColdStore struct {
	cfg CephConfig

	mu    sync.Mutex
	conn  *rados.Conn
	ioctx *rados.IOContext
}

func NewCephColdStore(cfg CephConfig) *CephColdStore {
	return &CephColdStore{cfg: cfg}
}

func (c *CephColdStore) ensureOpen() (*rados.IOContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ioctx != nil {
		return c.ioctx, nil
	}

	conn, err := rados.NewConnWithUser(c.cfg.UserName)
	if err != nil {
		return nil, externalErr("ceph new conn", err)
	}
	if c.cfg.ConfFile != "" {
		if err := conn.ReadConfigFile(c.cfg.ConfFile); err != nil {
			return nil, externalErr("ceph read config", err)
		}
	} else if err := conn.ReadDefaultConfigFile(); err != nil {
		return nil, externalErr("ceph read default config", err)
	}
	if err := conn.Connect(); err != nil {
		return nil, externalErr("ceph connect", err)
	}
	ioctx, err := conn.OpenIOContext(c.cfg.Pool)
	if err != nil {
		conn.Shutdown()
		return nil, externalErr("ceph open pool", err)
	}
	c.conn = conn
	c.ioctx = ioctx
	return ioctx, nil
}

// Put writes r to a RADOS object named key, in full -- the same
// write-whole-object strategy storage.CephStorage uses, appropriate here
// because archived generations are immutable once written.
func (c *CephColdStore) Put(key string, r io.Reader) error {
	ioctx, err := c.ensureOpen()
	if err != nil {
		return err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return ioErr("read archive body", err)
	}
	if err := ioctx.WriteFull(key, body); err != nil {
		return externalErr("ceph write "+key, err)
	}
	return nil
}

func (c *CephColdStore) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ioctx != nil {
		c.ioctx.Destroy()
	}
	if c.conn != nil {
		c.conn.Shutdown()
	}
}
