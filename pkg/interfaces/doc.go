// Package interfaces 定义 go-pgas 的外部协作者接口
//
// 本核心只在接口层面依赖两个外部服务：
//
//   - transport.go  - RMA 传输层（get/fence/fence_test/quiet/progress）
//   - rendezvous.go - rendezvous 键值交换与屏障服务（引导、发布、查找、结束）
//
// 具体实现位于 internal/core/transport/ 与 internal/core/rendezvous/，
// 测试替身位于 tests/mocks/。
package interfaces
