// Package proxy 提供 LiveProxy 的 HTTP 前端：从请求路径中取出目标 URL，
// 交给解析器解析后，直接转发媒体数据或重定向到解析出的地址。
//
// # 功能特性
//
// 本包包含以下功能：
//   - 显式路由表，按路径前缀选择转发或重定向模式
//   - 每个请求独立合并配置：默认值 < 显式配置文件 < 解析器配置文件 < 启动参数与请求参数
//   - 解析器参数依赖检查，可选的严格模式
//   - 流传输时逐次刷新写超时，客户端断开时释放上游连接
//   - 访问日志中间件
//
// # 使用示例
//
//	cfg := config.DefaultConfig()
//	sess := session.New(logger, httpstream.New())
//	parser := args.NewParser(afero.NewOsFs(), sess.Resolvers()...)
//	merger := args.NewMerger(parser, afero.NewOsFs(), config.DefaultConfigFiles(), sess.ResolverName)
//	server, err := proxy.NewServer(&cfg, sess, merger, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := server.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # API 端点
//
// 服务器提供以下端点：
//   - GET /play/<url>  - 解析 <url> 并返回媒体数据 (200, video/unknown)
//   - GET /301/<url>   - 解析 <url> 并 301 重定向到流的直接地址
//   - GET 其他路径     - 404
//   - HEAD 任意路径    - 404
//
// <url> 可以直接拼接在前缀之后 (可选百分号编码)，也可以用查询参数传递：
//
//	GET /play/?url=https%3A%2F%2Fexample.com%2Flive&stream=best,720p
//
// 所有响应都带有 "Server: LiveProxy" 与显式的 Content-Type。
package proxy
