/*
go-pointrend provides a point based refinement head for semantic
segmentation models, in the spirit of PointRend.

A backbone, such as DeepLabV3 running on an NPU, produces a low resolution
coarse class score map and a higher resolution fine feature map (res2).
Rather than upsampling the coarse map as a whole, the refinement head picks
a sparse set of points where the two best classes are closest and predicts
new logits for only those points from the concatenated coarse and fine
features.

In Inference mode the coarse map is upsampled by two repeatedly, each step
refining the 4048 most uncertain cells, until it reaches the input
resolution.  In Training mode a single step samples points with an over
generation and coverage policy and returns the point logits together with
the point coordinates for computing a loss.

See the example subdirectory for usage with a precomputed backbone output.
*/
package pointrend
