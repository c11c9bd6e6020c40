// Package server exposes the clustering engine over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/data?name=<blob>&components=2   load, normalize and project a dataset
//	GET  /api/dataset?type=X1|X2|X3           synthetic preset points (also /get-dataset,
//	                                           where unknown types serve X1)
//	POST /api/cluster                         {data, method, n_clusters, ...}
//	POST /cluster                             {points, k, max_iters, ...}
//	POST /api/plot?format=png|html            fit and render a scatter plot
//	GET  /api/results/{dataset}               latest saved fit
//	GET  /api/results/{dataset}/runs          saved run ids
//	GET  /api/results/{dataset}/runs/{id}     one saved fit
//	GET  /metrics                             when a metrics handler is set
//
// Every response is JSON except plots and metrics. Errors are reported as
// {"error": "..."} with the status from clusterkit.HTTPStatus.
package server
