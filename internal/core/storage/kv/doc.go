// Package kv 提供引擎之上的前缀隔离视图
//
// rendezvous 存储的键空间：
//
//	j/<namespace>/k/<key>   作业发布的键值
//	j/<namespace>/m/h/<rank> 成员主机名
package kv
