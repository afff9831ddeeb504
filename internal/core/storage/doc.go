// Package storage 提供 rendezvous 存储使用的键值后端
//
// # 架构
//
//	┌─────────────────────────────────────────────┐
//	│          rendezvous.Store（作业键值）         │
//	└─────────────────────────────────────────────┘
//	                      │
//	┌─────────────────────────────────────────────┐
//	│        kv.Store（按作业命名空间前缀隔离）       │
//	└─────────────────────────────────────────────┘
//	                      │
//	┌──────────────────────┬──────────────────────┐
//	│    engine/memory     │    engine/badger     │
//	└──────────────────────┴──────────────────────┘
//
// # 使用示例
//
//	eng, err := storage.Open(storage.Options{DataDir: "/data/rendezvous"})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//	jobs := kv.New(eng, "j/")
package storage
